package autofill

import (
	"fmt"
	"strings"
)

func numberOptions(from, to int) string {
	var sb strings.Builder
	for i := from; i <= to; i++ {
		fmt.Fprintf(&sb, "<option>%d</option>", i)
	}
	return sb.String()
}

func zeroPadded(from, to int) string {
	var sb strings.Builder
	for i := from; i <= to; i++ {
		fmt.Fprintf(&sb, "<option>%02d</option>", i)
	}
	return sb.String()
}

func monthOptions() string {
	var sb strings.Builder
	for _, m := range monthNames {
		fmt.Fprintf(&sb, "<option>%s</option>", strings.ToUpper(m[:1])+m[1:])
	}
	return sb.String()
}
