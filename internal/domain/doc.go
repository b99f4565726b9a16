// Package domain contains the core business entities of the content
// generation platform: generation jobs and their state machine, model groups
// with routing strategies, and configuration bundles. Types here carry their
// own validation and hold no persistence or transport concerns.
package domain
