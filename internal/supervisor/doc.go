// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

/*
Package supervisor runs the long-lived services of the recommendation server
under a suture v4 supervisor tree.

	RootSupervisor ("reelmatch")
	├── TrainingSupervisor ("training-layer")
	│   └── RecommendService (startup + interval retraining)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A panicking or failing training loop is restarted with backoff without
touching the HTTP server, which keeps serving the last trained model.
Supervisor events are logged through sutureslog into the zerolog-backed
slog handler from the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddTrainingService(services.NewRecommendService(engine, db, cfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, services.APIServiceConfig{Addr: server.Addr}, logger))
	err = tree.Serve(ctx)
*/
package supervisor
