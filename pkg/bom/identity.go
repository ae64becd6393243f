package bom

// SameComponent reports whether a declared component and a snippet candidate
// name the same component-version. Names and version names are compared
// exactly: no case folding, no trimming. An absent version name only equals
// another absent version name.
func SameComponent(declared DeclaredComponent, candidate Candidate) bool {
	if declared.Name != candidate.ProjectName {
		return false
	}
	return sameVersionName(declared.VersionName, candidate.VersionName)
}

func sameVersionName(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
