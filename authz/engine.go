package authz

import "github.com/Dosada05/alumni-network/models"

type Action string

const (
	ActionViewDirectory    Action = "VIEW_DIRECTORY"
	ActionExportReport     Action = "EXPORT_REPORT"
	ActionReviewSubmission Action = "REVIEW_SUBMISSION"
	ActionAssignFieldAdmin Action = "ASSIGN_FIELD_ADMIN"
	ActionManageEvent      Action = "MANAGE_EVENT"
	ActionEditOwnProfile   Action = "EDIT_OWN_PROFILE"
	ActionSubmitData       Action = "SUBMIT_DATA"
	ActionMarkAttendance   Action = "MARK_ATTENDANCE"
	ActionRegisterEvent    Action = "REGISTER_EVENT"
	ActionViewEvents       Action = "VIEW_EVENTS"
)

// Resource описывает цель действия. Пустые поля означают "не указано".
type Resource struct {
	Field                models.Field
	TargetUserID         int
	HasPendingSubmission bool
}

// Scope ограничивает видимые строки. Пустой Field - без ограничения.
type Scope struct {
	Field models.Field
}

func (s Scope) Unrestricted() bool { return s.Field == "" }

// Allows - попадает ли строка с данным направлением в область видимости.
func (s Scope) Allows(f models.Field) bool {
	return s.Unrestricted() || s.Field == f
}

type Decision struct {
	Allowed bool
	Scope   Scope
	Reason  string
}

func allow(scope Scope) Decision {
	return Decision{Allowed: true, Scope: scope}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Decide - единственная точка проверки прав. Правила проверяются по приоритету
// роли, неизвестное действие или отсутствие участника - отказ.
func Decide(p Principal, action Action, res Resource) Decision {
	if !action.known() {
		return deny("unknown action")
	}
	switch p := p.(type) {
	case SuperAdmin:
		return decideSuperAdmin(action)
	case FieldAdmin:
		return decideFieldAdmin(p, action, res)
	case VerifiedUser:
		return decideVerifiedUser(p, action, res)
	case Unverified:
		return decideUnverified(action, res)
	default:
		return deny("no principal")
	}
}

func decideSuperAdmin(action Action) Decision {
	switch action {
	case ActionEditOwnProfile, ActionSubmitData, ActionRegisterEvent:
		// у суперадмина нет анкеты выпускника
		return deny("super admin has no alumni profile")
	}
	return allow(Scope{})
}

func decideFieldAdmin(p FieldAdmin, action Action, res Resource) Decision {
	scope := Scope{Field: p.Field}
	switch action {
	case ActionReviewSubmission, ActionViewDirectory, ActionExportReport, ActionMarkAttendance:
		if res.Field != "" && res.Field != p.Field {
			return deny("resource outside assigned field")
		}
		return allow(scope)
	case ActionViewEvents:
		return allow(Scope{})
	case ActionEditOwnProfile:
		if res.TargetUserID != p.ID {
			return deny("not own profile")
		}
		return allow(scope)
	}
	return deny("not permitted for field admin")
}

func decideVerifiedUser(p VerifiedUser, action Action, res Resource) Decision {
	switch action {
	case ActionViewDirectory, ActionExportReport, ActionViewEvents, ActionRegisterEvent:
		return allow(Scope{})
	case ActionEditOwnProfile:
		if res.TargetUserID != p.ID {
			return deny("not own profile")
		}
		return allow(Scope{})
	case ActionSubmitData:
		return deny("already verified")
	}
	return deny("admin action")
}

func decideUnverified(action Action, res Resource) Decision {
	switch action {
	case ActionSubmitData:
		if res.HasPendingSubmission {
			return deny("pending submission exists")
		}
		return allow(Scope{})
	case ActionViewEvents:
		return allow(Scope{})
	}
	return deny("verification required")
}

func (a Action) known() bool {
	switch a {
	case ActionViewDirectory, ActionExportReport, ActionReviewSubmission, ActionAssignFieldAdmin,
		ActionManageEvent, ActionEditOwnProfile, ActionSubmitData, ActionMarkAttendance,
		ActionRegisterEvent, ActionViewEvents:
		return true
	}
	return false
}
