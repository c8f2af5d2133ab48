package pipeline

// PackageName identifies an installed package. Work items and findings derived
// from one package share the same immutable string.
type PackageName string

// ExecutableWorkItem is one executable file awaiting a dependency check.
type ExecutableWorkItem struct {
	Package  PackageName
	FilePath string
	// LastForPackage marks the item built from the final enumerated file of its package.
	LastForPackage bool
}

// MissingDependencyFinding reports one unresolved shared library of one executable.
type MissingDependencyFinding struct {
	Package  PackageName `json:"package" yaml:"package"`
	FilePath string      `json:"file" yaml:"file"`
	Library  string      `json:"library" yaml:"library"`
}

// BuildWorkItems converts the enumerated executables of a package into work items,
// tagging the final one. An empty file list yields no items.
func BuildWorkItems(packageName PackageName, filePaths []string) []ExecutableWorkItem {
	if len(filePaths) == 0 {
		return nil
	}
	workItems := make([]ExecutableWorkItem, 0, len(filePaths))
	for fileIndex, filePath := range filePaths {
		workItems = append(workItems, ExecutableWorkItem{
			Package:        packageName,
			FilePath:       filePath,
			LastForPackage: fileIndex == len(filePaths)-1,
		})
	}
	return workItems
}
