// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

/*
Package api exposes the recommendation engine over HTTP using the chi router.

All endpoints live under /api/v1 and answer with the same JSON envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, "meta": {...}}

Routes:

	GET  /api/v1/health/live
	GET  /api/v1/health/ready
	GET  /api/v1/recommendations/model
	POST /api/v1/recommendations/train[?wait=true]
	GET  /api/v1/recommendations/popular?limit=
	GET  /api/v1/recommendations/users/{userID}?mode=hybrid|collaborative&limit=
	GET  /api/v1/recommendations/users/{userID}/cold-start
	GET  /api/v1/recommendations/predict?user_id=&item_id=
	GET  /api/v1/items/{itemID}
	PUT  /api/v1/items/{itemID}
	GET  /api/v1/items/{itemID}/similar?limit=
	POST /api/v1/interactions
	GET  /metrics

Engine errors map to statuses in one place (writeEngineError): missing
training data is 400, an untrained model or a running training is 409, an
unknown item is 404, an open database circuit is 503 and anything else 500.
*/
package api
