package demand

import (
	"fmt"
	"strings"
)

// InputError reports a demand sample that cannot be used. The run stops before
// any model is built.
type InputError struct {
	Line    int
	Station string
	Period  string
	Field   string
	Msg     string
}

func (e *InputError) Error() string {
	var b strings.Builder
	b.WriteString("demand input")
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Station != "" {
		fmt.Fprintf(&b, " station %s", e.Station)
	}
	if e.Period != "" {
		fmt.Fprintf(&b, " period %s", e.Period)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s)", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}
