// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

  - Principal: an authenticated actor with a role and a home area
  - Voter: one row of the electoral roll plus its sentiment tag
  - AuditEntry: one recorded tag change
  - Session: issue and expiry times of a bearer session

# Roles

	RoleSuperAdmin         = "super_admin"
	RoleCandidate          = "candidate"
	RoleCandidateAssistant = "candidate_assistant"
	RoleSuperUser          = "super_user"
	RolePDM                = "pdm"

Every role except super_admin has a home area.

# Tags

	TagYes    = "Yes"
	TagUnsure = "Unsure"
	TagNo     = "No"

A nil *Tag is an untagged voter. The filter value "untagged" selects them.

# Request Types

  - LoginRequest, ChangePasswordRequest
  - UpdateTagRequest, BatchUpdateTagRequest
  - CreatePrincipalRequest, SetActiveRequest, ResetPasswordRequest

# Response Types

  - LoginResponse: access_token, expires_at, must_change_password, user
  - VoterPage, AuditPage
  - BatchUpdateTagResponse: one BatchItemResult per item
  - Stats: tag, gender and age band counts with the yes projection
  - ErrorResponse: error, code, message
*/
package models
