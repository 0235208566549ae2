package audit

import "fmt"

// LoginEvent represents a user authentication attempt.
type LoginEvent struct {
	Email        string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e LoginEvent) MessageID() string {
	return "login"
}

func (e LoginEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s successfully logged in", e.Email)
	}
	msg := fmt.Sprintf("%s failed to log in", e.Email)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e LoginEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e LoginEvent) Facility() int {
	return FacilityAuthPriv
}

func (e LoginEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Email,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "login",
			"result":    result,
		},
	}
}

// CheckEvent represents an authorization decision.
type CheckEvent struct {
	UserID    uint
	AccountID uint
	ClientIP  string
	Action    string
	Allowed   bool
}

func (e CheckEvent) MessageID() string {
	return "check"
}

func (e CheckEvent) Message() string {
	if e.Allowed {
		return fmt.Sprintf("user %d checked %s on account %d: allowed", e.UserID, e.Action, e.AccountID)
	}
	return fmt.Sprintf("user %d checked %s on account %d: denied", e.UserID, e.Action, e.AccountID)
}

func (e CheckEvent) Severity() Severity {
	return SeverityInfo
}

func (e CheckEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CheckEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Allowed {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": fmt.Sprintf("%d", e.UserID),
		},
		SDIDSubject: {
			"account": fmt.Sprintf("%d", e.AccountID),
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Action,
			"result":    result,
		},
	}
}

// BindingEvent represents a role binding mutation (grant, update, revoke).
type BindingEvent struct {
	ActorID      uint
	SubjectID    uint
	AccountID    uint
	ClientIP     string
	Role         string
	Operation    string // "grant", "update", "revoke"
	Success      bool
	ErrorMessage string
}

func (e BindingEvent) MessageID() string {
	return "binding"
}

func (e BindingEvent) Message() string {
	subject := fmt.Sprintf("user %d on account %d", e.SubjectID, e.AccountID)
	if e.Success {
		switch e.Operation {
		case "revoke":
			return fmt.Sprintf("user %d revoked role of %s", e.ActorID, subject)
		case "update":
			return fmt.Sprintf("user %d changed role of %s to %s", e.ActorID, subject, e.Role)
		default:
			return fmt.Sprintf("user %d granted %s to %s", e.ActorID, e.Role, subject)
		}
	}
	msg := fmt.Sprintf("user %d failed to %s role for %s", e.ActorID, e.Operation, subject)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e BindingEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e BindingEvent) Facility() int {
	return FacilityAuthPriv
}

func (e BindingEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": fmt.Sprintf("%d", e.ActorID),
		},
		SDIDSubject: {
			"user":    fmt.Sprintf("%d", e.SubjectID),
			"account": fmt.Sprintf("%d", e.AccountID),
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result,
		},
	}
	if e.Role != "" {
		sd[SDIDSubject]["role"] = e.Role
	}
	return sd
}

// RegisterEvent represents a marketplace account registration.
type RegisterEvent struct {
	ActorID      uint
	ExternalID   string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e RegisterEvent) MessageID() string {
	return "register"
}

func (e RegisterEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("user %d registered account %s", e.ActorID, e.ExternalID)
	}
	msg := fmt.Sprintf("user %d failed to register account %s", e.ActorID, e.ExternalID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e RegisterEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e RegisterEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RegisterEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": fmt.Sprintf("%d", e.ActorID),
		},
		SDIDSubject: {
			"account": e.ExternalID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "register",
			"result":    result,
		},
	}
}

// UnlinkEvent represents deletion of a marketplace account together with its
// credential and role bindings.
type UnlinkEvent struct {
	ActorID      uint
	AccountID    uint
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e UnlinkEvent) MessageID() string {
	return "unlink"
}

func (e UnlinkEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("user %d unlinked account %d", e.ActorID, e.AccountID)
	}
	msg := fmt.Sprintf("user %d failed to unlink account %d", e.ActorID, e.AccountID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e UnlinkEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e UnlinkEvent) Facility() int {
	return FacilityAuthPriv
}

func (e UnlinkEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": fmt.Sprintf("%d", e.ActorID),
		},
		SDIDSubject: {
			"account": fmt.Sprintf("%d", e.AccountID),
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "unlink",
			"result":    result,
		},
	}
}

// RefreshEvent represents an access token refresh for an account.
type RefreshEvent struct {
	AccountID    uint
	Attempts     int
	Success      bool
	Terminal     bool
	ErrorMessage string
}

func (e RefreshEvent) MessageID() string {
	return "refresh"
}

func (e RefreshEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("refreshed access token for account %d", e.AccountID)
	}
	msg := fmt.Sprintf("failed to refresh access token for account %d", e.AccountID)
	if e.Terminal {
		msg = fmt.Sprintf("account %d requires re-authorization", e.AccountID)
	}
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e RefreshEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	if e.Terminal {
		return SeverityError
	}
	return SeverityWarning
}

func (e RefreshEvent) Facility() int {
	return FacilityAuth
}

func (e RefreshEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDSubject: {
			"account": fmt.Sprintf("%d", e.AccountID),
		},
		SDIDAction: {
			"operation": "refresh",
			"result":    result,
		},
	}
	if e.Attempts > 0 {
		sd[SDIDAction]["attempts"] = fmt.Sprintf("%d", e.Attempts)
	}
	if e.Terminal {
		sd[SDIDAction]["terminal"] = "true"
	}
	return sd
}

// CredentialEvent represents storage of new credential material.
type CredentialEvent struct {
	ActorID      uint
	AccountID    uint
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e CredentialEvent) MessageID() string {
	return "credential"
}

func (e CredentialEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("user %d stored credentials for account %d", e.ActorID, e.AccountID)
	}
	msg := fmt.Sprintf("user %d failed to store credentials for account %d", e.ActorID, e.AccountID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e CredentialEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e CredentialEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CredentialEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": fmt.Sprintf("%d", e.ActorID),
		},
		SDIDSubject: {
			"account": fmt.Sprintf("%d", e.AccountID),
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "store-credentials",
			"result":    result,
		},
	}
}
