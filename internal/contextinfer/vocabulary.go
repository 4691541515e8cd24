package contextinfer

// areaKeywords weights candidate keywords per area. Scores are summed per
// occurrence found in the search text; this is an engineering judgment call
// (the spec names the mechanism, not the table), recorded in DESIGN.md.
var areaKeywords = map[Area]map[string]float64{
	Frontend: {
		"react": 2.0, "vue": 2.0, "svelte": 2.0, "angular": 2.0,
		"component": 1.2, "jsx": 1.8, "tsx": 1.8, "css": 1.0,
		"stylesheet": 1.2, "frontend": 2.2, "ui": 0.8, "browser": 1.0,
		"webpack": 1.6, "vite": 1.6, "dom": 1.2, "render": 0.8,
	},
	Backend: {
		"api": 1.4, "server": 1.6, "handler": 1.2, "controller": 1.2,
		"endpoint": 1.4, "middleware": 1.4, "database": 1.4, "sql": 1.2,
		"repository": 1.0, "service": 0.8, "backend": 2.2, "grpc": 1.8,
		"rest": 1.2, "microservice": 1.8,
	},
	DevOps: {
		"docker": 2.0, "kubernetes": 2.2, "k8s": 2.2, "terraform": 2.0,
		"ci/cd": 1.8, "pipeline": 1.2, "deploy": 1.4, "helm": 1.8,
		"ansible": 1.8, "infrastructure": 1.6, "devops": 2.4, "yaml": 0.6,
		"container": 1.2, "provisioning": 1.4,
	},
	Mobile: {
		"android": 2.2, "ios": 2.2, "swift": 2.0, "kotlin": 2.0,
		"flutter": 2.2, "react native": 2.2, "mobile": 2.2, "xcode": 1.8,
		"gradle": 1.2, "cocoapods": 1.8,
	},
	DataScience: {
		"pandas": 2.0, "numpy": 2.0, "tensorflow": 2.2, "pytorch": 2.2,
		"jupyter": 2.0, "dataset": 1.4, "model training": 1.6,
		"machine learning": 2.2, "dataframe": 1.6, "notebook": 1.2,
		"regression": 1.6, "embedding": 1.0,
	},
	ToolingInternal: {
		"cli": 1.6, "linter": 1.6, "formatter": 1.4, "build tool": 1.6,
		"codegen": 1.8, "script": 0.8, "internal tooling": 2.0,
		"makefile": 1.2, "devtool": 1.8, "scaffolding": 1.6,
	},
}

// techVocabulary maps a technology label to its matching keywords, scored
// independently of area with a per-technology threshold (≈1.8, see
// techThreshold).
var techVocabulary = map[string][]string{
	"React":      {"react", "jsx", "usestate", "useeffect"},
	"Vue":        {"vue", "vuex", "nuxt"},
	"Angular":    {"angular", "ngmodule", "rxjs"},
	"Go":         {"package main", "func ", "goroutine", "go.mod"},
	"Python":     {"def ", "import ", "pandas", "numpy", "__init__"},
	"TypeScript": {"interface ", "tsx", ": string", ": number"},
	"Docker":     {"dockerfile", "docker-compose", "docker build"},
	"Kubernetes": {"kubernetes", "k8s", "kubectl", "helm chart"},
	"Terraform":  {"terraform", "hcl", ".tf"},
	"PostgreSQL": {"postgres", "postgresql", "pg_"},
	"GraphQL":    {"graphql", "resolver", "apollo"},
	"gRPC":       {"grpc", "protobuf", ".proto"},
}

// readmeStyleKeywords are the keyword weights contributing to
// isGeneralPurposeReadmeStyle.
var readmeStyleKeywords = map[string]float64{
	"installation": 1.5, "setup": 1.2, "usage": 1.2, "getting started": 1.5,
	"prerequisites": 1.0, "license": 0.8, "contributing": 1.0,
	"table of contents": 1.2, "quick start": 1.3,
}

// pathHints boosts an area's score when the relative path contains a
// recognisable directory or filename fragment.
var pathHints = map[string]Area{
	"/frontend/": Frontend, "/client/": Frontend, "/ui/": Frontend,
	"/api/": Backend, "/server/": Backend, "/backend/": Backend,
	"/infra/": DevOps, "/deploy/": DevOps, "/.github/workflows/": DevOps,
	"/mobile/": Mobile, "/ios/": Mobile, "/android/": Mobile,
	"/notebooks/": DataScience, "/models/": DataScience,
	"/cmd/": ToolingInternal, "/tools/": ToolingInternal, "/scripts/": ToolingInternal,
}

const (
	// confidenceFloor is the minimum winning-area score (§4.4 "≈3.5").
	confidenceFloor = 3.5
	// techThreshold is the per-technology score required to count toward
	// dominantTech (§4.4 "≈1.8").
	techThreshold = 1.8
	// readmeStyleThreshold is the minimum summed README-keyword score.
	readmeStyleThreshold = 2.5
	// maxKeywords bounds InferredContext.Keywords (§3 "≤15").
	maxKeywords = 15
	// sampleWindow caps how much chunk text feeds the classifier (§4.4
	// "up to ~2,000 characters").
	sampleWindow = 2000
)
