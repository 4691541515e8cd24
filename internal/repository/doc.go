// Package repository walks a project directory into a filtered candidate
// file list for the Indexer's pre-filter stage (§4.5 step 3), honouring
// skip-directories, a closed binary-extension list, a file-size ceiling,
// user exclusion globs, and .gitignore (via go-git when the directory is a
// repository, via internal/ignore otherwise). Grounded on the teacher's
// internal/repository/service.go file-walking shape.
package repository
