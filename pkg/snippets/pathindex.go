package snippets

import (
	"github.com/sirupsen/logrus"
	"github.com/sw33tLie/protexsync/internal/utils"
	"github.com/sw33tLie/protexsync/pkg/bom"
)

// IndexSnippets keys snippet matches by the path of the file they were found in.
// Hub can report more than one snippet entry for the same path; the later
// entry replaces the earlier one and a warning is logged.
func IndexSnippets(matches []bom.SnippetMatch) map[string]bom.SnippetMatch {
	index := make(map[string]bom.SnippetMatch, len(matches))
	for _, m := range matches {
		if _, exists := index[m.Path]; exists {
			utils.Log.WithField("path", m.Path).Warn("More than one snippet for path, keeping the last one")
		}
		index[m.Path] = m
	}
	return index
}

// Associate pairs the declared component with every snippet match found at
// one of its paths. Paths without a snippet match are dropped.
func Associate(declared bom.DeclaredComponent, paths []string, index map[string]bom.SnippetMatch) map[string]bom.Association {
	out := make(map[string]bom.Association)
	for _, p := range paths {
		if s, ok := index[p]; ok {
			out[p] = bom.Association{Declared: declared, Snippet: s}
		}
	}

	if len(out) > 0 {
		utils.Log.WithFields(logrus.Fields{
			"component": declared.Label(),
			"paths":     len(paths),
			"snippets":  len(out),
		}).Info("Found snippet matches in files declared by component")
	}
	return out
}
