package services

import (
	"fmt"

	"github.com/sabaq-center/sabaq-service/internal/models"
)

// renderTemplate produces the text and HTML bodies for a queued email. The
// queue stores only the template name and payload, so bodies stay
// re-renderable when copy changes.
func renderTemplate(template string, data map[string]interface{}) (text, html string) {
	name := str(data, "name")
	sabaqName := str(data, "sabaq_name")

	switch template {
	case models.TemplateAttendanceMarked:
		line := fmt.Sprintf("your attendance for %s (%s) has been recorded.", sabaqName, str(data, "session_date"))
		if isLate, _ := data["is_late"].(bool); isLate {
			line = fmt.Sprintf("%s You were marked %v minutes late.", line, data["minutes_late"])
		}
		text = fmt.Sprintf("Dear %s,\n\n%s\n", name, line)

	case models.TemplateSessionStarted:
		text = fmt.Sprintf("Dear %s,\n\nthe %s session (%s) has started. Please mark your attendance.\n",
			name, sabaqName, str(data, "kitaab"))

	case models.TemplateSessionReport:
		text = fmt.Sprintf(
			"Dear %s,\n\nattendance report for %s on %s:\n\nEnrolled: %v\nPresent: %v\nLate: %v\nAbsent: %v\nNo-shows: %v\n\nThe full report is attached.\n",
			name, sabaqName, str(data, "session_date"),
			data["total_enrolled"], data["present_count"], data["late_count"],
			data["absent_count"], data["no_show_count"])

	case models.TemplateEnrollmentApproved:
		text = fmt.Sprintf("Dear %s,\n\nyour enrollment in %s has been approved.\n", name, sabaqName)

	case models.TemplateEnrollmentRejected:
		text = fmt.Sprintf("Dear %s,\n\nyour enrollment request for %s was not approved.\n", name, sabaqName)

	default:
		text = fmt.Sprintf("Dear %s,\n\nyou have a new notification from Sabaq Center.\n", name)
	}

	html = fmt.Sprintf("<html><body><pre style=\"font-family:inherit\">%s</pre></body></html>", text)
	return text, html
}

func str(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
