// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client is a Go client for the votertag API.

A Client holds one session. Login starts it, Logout clears it, and every
authenticated call first checks it locally: once 72 hours have passed
since login the session is cleared and the call fails with
apperr.ErrSessionExpired without contacting the server.

	c := client.New("http://localhost:3318", nil)
	if _, err := c.Login(ctx, "pdm1_lb", password); err != nil {
		return err
	}
	page, err := c.ListVoters(ctx, url.Values{"tag": {"untagged"}})

API errors are returned as *Error and unwrap to the apperr kind named by
the response code, so errors.Is(err, apperr.ErrAuthorization) works on
both sides of the wire.

WatchExpiry runs a background check that clears the session when it
expires, for callers that want to react before their next request.
*/
package client
