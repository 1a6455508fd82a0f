// Package permissions is the single capability table consulted by every
// workflow entry point. Role allow-lists live here and nowhere else; services
// layer sabaq-scoped checks (janab, sabaq admin) on top of the table.
package permissions

import (
	"github.com/sabaq-center/sabaq-service/internal/models"
)

type Resource string

const (
	ResourceSabaq      Resource = "sabaq"
	ResourceSession    Resource = "session"
	ResourceAttendance Resource = "attendance"
	ResourceEnrollment Resource = "enrollment"
	ResourceQuestion   Resource = "question"
	ResourceEmailQueue Resource = "email_queue"
	ResourceUser       Resource = "user"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	ActionStart  Action = "start"
	ActionEnd    Action = "end"
	ActionResume Action = "resume"

	ActionMarkManual Action = "mark_manual"
	ActionMarkSelf   Action = "mark_self"
	ActionBulkMark   Action = "bulk_mark"

	ActionApprove Action = "approve"
	ActionRequest Action = "request"

	ActionSubmit Action = "submit"
	ActionVote   Action = "vote"

	ActionProcess Action = "process"
	ActionRetry   Action = "retry"

	ActionPromote Action = "promote"
)

type capability struct {
	resource Resource
	action   Action
}

var allRoles = []models.UserRole{
	models.RoleSuperAdmin,
	models.RoleAdmin,
	models.RoleManager,
	models.RoleAttendanceIncharge,
	models.RoleJanab,
	models.RoleMumin,
}

// table maps (resource, action) to the roles allowed to perform it.
// JANAB entries grant the capability only for sabaqs the user owns; that
// scoping is checked by the calling service, not here.
var table = map[capability][]models.UserRole{
	{ResourceSabaq, ActionCreate}: {models.RoleSuperAdmin, models.RoleAdmin},
	{ResourceSabaq, ActionRead}:   allRoles,
	{ResourceSabaq, ActionUpdate}: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleJanab},
	{ResourceSabaq, ActionDelete}: {models.RoleSuperAdmin},

	{ResourceSession, ActionCreate}: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleJanab},
	{ResourceSession, ActionRead}:   allRoles,
	{ResourceSession, ActionStart}:  {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleJanab},
	{ResourceSession, ActionEnd}:    {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleJanab},
	{ResourceSession, ActionResume}: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleJanab},
	{ResourceSession, ActionDelete}: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleJanab},

	{ResourceAttendance, ActionMarkManual}: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleAttendanceIncharge, models.RoleJanab},
	{ResourceAttendance, ActionMarkSelf}:   allRoles,
	{ResourceAttendance, ActionBulkMark}:   {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleAttendanceIncharge, models.RoleJanab},
	{ResourceAttendance, ActionRead}:       {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleAttendanceIncharge, models.RoleJanab},
	{ResourceAttendance, ActionDelete}:     {models.RoleSuperAdmin, models.RoleAdmin},

	{ResourceEnrollment, ActionRequest}: allRoles,
	{ResourceEnrollment, ActionApprove}: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleJanab},
	{ResourceEnrollment, ActionRead}:    {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleAttendanceIncharge, models.RoleJanab},

	{ResourceQuestion, ActionSubmit}: allRoles,
	{ResourceQuestion, ActionVote}:   allRoles,
	{ResourceQuestion, ActionRead}:   allRoles,
	{ResourceQuestion, ActionDelete}: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleJanab},

	{ResourceEmailQueue, ActionProcess}: {models.RoleSuperAdmin, models.RoleAdmin},
	{ResourceEmailQueue, ActionRetry}:   {models.RoleSuperAdmin, models.RoleAdmin},

	{ResourceUser, ActionPromote}: {models.RoleSuperAdmin},
	{ResourceUser, ActionRead}:    {models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleAttendanceIncharge, models.RoleJanab},
}

// Can reports whether role is allowed to perform action on resource.
func Can(role models.UserRole, resource Resource, action Action) bool {
	allowed, ok := table[capability{resource, action}]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CanBypassActiveCheck reports whether a role may mark attendance on an
// inactive session by virtue of global role alone. Sabaq-scoped bypass
// (sabaq admin, janab of that sabaq) is decided by the attendance service.
func CanBypassActiveCheck(role models.UserRole) bool {
	return role == models.RoleSuperAdmin
}
