// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package middleware provides net/http middleware shared by the API router.

  - RequestID: request and correlation IDs in headers, context and logger
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by chi route pattern

Both have the func(http.Handler) http.Handler shape and are mounted with
chi's Router.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
