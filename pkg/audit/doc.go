// Package audit provides audit logging for security-relevant operations.
//
// Events cover authentication attempts, authorization decisions, role
// binding changes, account registration, credential storage and token
// refresh outcomes. Events are emitted as RFC5424 syslog lines on stdout
// and, when AUDIT_DATABASE_URL is set, persisted to Postgres.
//
//	audit.Log(audit.LoginEvent{Email: email, ClientIP: ip, Success: true})
package audit
