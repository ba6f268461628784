// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package auth issues and validates the admin bearer tokens that guard
POST /api/v1/refresh.

Every read endpoint is public. A manual refresh makes the server scrape two
third-party sites, so when ADMIN_JWT_SECRET is set the refresh route needs

	Authorization: Bearer <token>

where the token is an HS256 JWT signed with that secret, issued by
"ctgp-popularity" and carrying role "admin". Tokens are minted with the
admintoken command:

	ADMIN_JWT_SECRET=... go run ./cmd/admintoken --subject ops
*/
package auth
