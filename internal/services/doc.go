// Package services holds the cross-cutting plumbing the pipeline stages
// share: context carriers for run id, stage name and request correlation
// id, and the sentinel error markers with the Wrap helper that sort
// failures into the categories run history and the API report.
//
// New stage code should reach for these helpers rather than invent its
// own context keys or error taxonomy.
package services
