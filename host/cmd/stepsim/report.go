package main

import (
	"fmt"

	"github.com/flosch/pongo2/v5"
)

const reportTemplate = `Run {{ run.RunID }}{% if run.Machine %} on {{ run.Machine }}{% endif %}
  lines:    {{ run.Lines }}
  virtual:  {{ seconds }}s over {{ run.Ticks }} ticks ({{ run.Timers }} timers)
{% if run.Error %}  error:    {{ run.Error }}
{% endif %}
Axes
{% for a in run.Axes %}  {{ a.Name }}  pos={{ a.Position }} target={{ a.Target }} pulses={{ a.Pulses }}{% if a.Moving %} (moving){% endif %}
{% endfor %}
Events{% if not run.Events %} (none){% endif %}
{% for e in run.Events %}  {{ e.Kind }} {{ e.Axis }} s={{ e.S }} pos={{ e.Pos }} v={{ e.Value }}
{% endfor %}`

var reportTpl = pongo2.Must(pongo2.FromString(reportTemplate))

// renderReport formats a run summary as text
func renderReport(sum *summary) (string, error) {
	return reportTpl.Execute(pongo2.Context{
		"run":     sum,
		"seconds": fmt.Sprintf("%.3f", sum.VirtualTime.Seconds()),
	})
}
