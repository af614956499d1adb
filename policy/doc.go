// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package policy decides who may read or write which rows.

Every function is pure. The store loads the acting principal inside the
same transaction as the data access and asks this package before touching
any row.

# Voter Rows

	super_admin                    all operations, all rows
	candidate, super_user, pdm     select, update where home_area matches
	candidate_assistant            select where home_area matches

Insert and delete are admin-only. A principal with an empty home area
matches nothing.

# Principal Rows

super_admin may do anything. Everyone else may select and update their
own row only.

# Capabilities

	export        all roles except candidate_assistant
	view_audit    super_admin
	manage_users  super_admin

An inactive principal is denied everything. All denials wrap
apperr.ErrAuthorization.
*/
package policy
