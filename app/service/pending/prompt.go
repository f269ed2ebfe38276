package pending

import (
	"fmt"
	"strings"
)

// renderPrompt formats one disambiguation step. The progress marker is only
// shown when more than one reference is queued.
func renderPrompt(ref Reference, index, total int) string {
	var b strings.Builder

	if total > 1 {
		fmt.Fprintf(&b, "🤔 Who is %q? (%d/%d)\n", ref.SearchedName, index, total)
	} else {
		fmt.Fprintf(&b, "🤔 Who is %q?\n", ref.SearchedName)
	}

	for i, cand := range ref.Candidates {
		if cand.Company != "" {
			fmt.Fprintf(&b, "%d = %s (%s)\n", i+1, cand.Name, cand.Company)
		} else {
			fmt.Fprintf(&b, "%d = %s\n", i+1, cand.Name)
		}
	}

	b.WriteString("0 = Skip\n")
	b.WriteString("Or type the correct full name.")

	return b.String()
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}

	return parts[0], strings.Join(parts[1:], " ")
}
