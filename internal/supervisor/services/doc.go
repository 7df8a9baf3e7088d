// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

/*
Package services adapts server components to suture's Serve(ctx) error
lifecycle.

RecommendService (training layer):
  - optionally trains once at startup
  - retrains on a fixed interval
  - skips a cycle while the interaction log holds fewer than MinRatings rows

HTTPServerService (API layer):
  - runs ListenAndServe on its own goroutine
  - calls Shutdown with a bounded timeout when the context is canceled
  - treats http.ErrServerClosed as a clean stop

Both implement fmt.Stringer so supervisor events name the service.
*/
package services
