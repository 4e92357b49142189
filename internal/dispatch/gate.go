package dispatch

// Notification keys checked against the stored notification settings
const (
	KeyNewUser               = "new_user"
	KeyUserAssigned          = "user_assigned"
	KeyFirstComment          = "first_comment"
	KeyStatusPriorityChanges = "status_priority_changes"
	KeyTicketByCustomer      = "ticket_by_customer"
	KeyTicketFromDashboard   = "ticket_from_dashboard"
	KeyTicketResolved        = "ticket_resolved"
)

// Enabled reports whether a notification key is switched on in the given
// preference snapshot. Keys absent from the snapshot are disabled, so a new
// notification type stays silent until explicitly enabled. The gate runs
// before any entity fetch; it is the cheapest step in the pipeline.
func Enabled(prefs map[string]bool, key string) bool {
	return prefs[key]
}
