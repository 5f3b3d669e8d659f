/*
Package crmsdk provides a client SDK for the Pancaran CRM invoice portal
backend.

# Overview

The SDK covers the portal's full client surface: identity-provider token
grants, the login/role-resolution workflow, session persistence, and the
invoice, user-administration, tenant and file-attachment endpoints. All
backend calls flow through one parameterised request pipeline (Client) so
credential decoration, error classification and session teardown behave
identically everywhere.

# Wiring

Components are constructed explicitly and share a SessionStore and an
eventbus.Bus:

	bus := eventbus.New()
	store, err := crmsdk.NewSQLiteStore("portal-session.db")

	tokens := crmsdk.NewTokenClient(tokenURL, tokenServiceCredential)
	crm := crmsdk.NewCRMClient(crmURL, serviceCredential, store, bus, logger)

	auth := crmsdk.NewAuthService(tokens, crm, store, bus, logger)
	invoices := crmsdk.NewInvoiceService(crm)

Subscribe to the logout broadcast to react to forced teardown (e.g. a 401
on any in-flight request):

	bus.Subscribe(eventbus.EventLogout, func() {
		// return to the login screen
	})

# Login workflow

Login performs the whole sequence in one call: password grant against the
token endpoint, subject extraction from the identity token, default-role
lookup (which issues the backend session JWT), profile fetch, ability-rule
derivation, and a single atomic save of the resulting session snapshot:

	result, err := auth.Login(ctx, username, password)

# Error handling

Failures are classified into a small taxonomy. Authentication-class errors
(ErrAuthRequired, ErrInvalidToken, ErrSessionExpired) always perform
teardown — session cleared, logout broadcast — before they propagate, so
callers never clean up manually. Structured backend errors surface
verbatim as *APIError; transport failures wrap as *NetworkError; missing
local input fails fast as *ValidationError with no side effects.

	_, err := invoices.ListWaitingConfirm(ctx, nil)
	if errors.Is(err, crmsdk.ErrInvalidToken) {
		// session is already torn down; logout has been broadcast
	}
*/
package crmsdk
