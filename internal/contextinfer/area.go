package contextinfer

// Area names the inferred domain of a code blob or document (§3 Inferred
// Context).
type Area string

const (
	Frontend           Area = "Frontend"
	Backend            Area = "Backend"
	DevOps             Area = "DevOps"
	Mobile             Area = "Mobile"
	DataScience        Area = "DataScience"
	ToolingInternal    Area = "ToolingInternal"
	GeneralTechnical   Area = "GeneralTechnical"
	GeneralProjectDoc  Area = "GeneralProjectDoc"
	GeneralJSOrTS      Area = "GeneralJS_TS"
	Unknown            Area = "Unknown"
)

// boostedAreas lists the areas whose score is boosted by dominantTech
// overlap, per §4.4 ("boosts Frontend/Backend/DevOps/Tooling...").
var boostedAreas = map[Area]bool{
	Frontend:        true,
	Backend:         true,
	DevOps:          true,
	ToolingInternal: true,
}

// InferredContext is the classifier's output (§3).
type InferredContext struct {
	Area                        Area
	DominantTech                []string
	Keywords                    []string
	IsGeneralPurposeReadmeStyle bool
}
