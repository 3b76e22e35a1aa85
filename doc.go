// Package main provides the entry point of hms-user-sync.
// It reconciles the weekly lesson schedule of the Hausmeistersteuerung with
// group memberships in an identity provider, so that students can only use
// the connected devices while one of their lessons runs. Schedule, class
// groups and the audit log are kept in a gorm database; the status API is
// served with fiber.
package main
