/*
Package portalsdk is the Go client for the patients portal API and the home of
its wire types. The server encodes the same structs it documents, so a
handler change that breaks a client breaks this package's build first.

# SDKClient vs Session

SDKClient covers the public endpoints: registration, the two-step login, MFA
enrolment, refresh, health and bootstrap. A successful second login step (or
a refresh) yields a TokenResponse which NewSession turns into a Session:

	client := portalsdk.NewSDKClient("https://portal.example.com")

	step1, err := client.Login(ctx, portalsdk.LoginRequest{Email: email, Password: pw})
	if err != nil {
		return err
	}
	if !step1.MFARequired {
		// enrol first: SetupMFA, then VerifyMFA with a code from the app,
		// then Login again for a fresh ticket
	}

	tokens, err := client.LoginMFA(ctx, portalsdk.LoginMFARequest{
		Email:    email,
		TOTPCode: code,
		MFAToken: step1.MFAToken,
	})
	session := client.NewSession(tokens)

	reports, err := session.ListReports(ctx)

# Token renewal

Sessions refresh the access token 30 seconds before it expires. Every refresh
rotates the refresh token; the previous one stops working immediately, so a
Session must not be copied between processes.

# Errors

Non-2xx responses decode into *APIError, which carries the HTTP status and
the {"error","error_description"} body. Compare with errors.As.
*/
package portalsdk
