package main

import "time"

type Mode int

const (
	ModeNormal Mode = iota
	ModeEditing
	ModeQuickCreate
	ModeSearch
	ModeConfirm
	ModeHelp
)

type ConfirmAction int

const (
	ConfirmDeleteNote ConfirmAction = iota
	ConfirmDeleteLink
	ConfirmQuit
)

type intentKind int

const (
	intentNone intentKind = iota
	intentSelectNote
	intentDrillNote
	intentNavigateBack
	intentCreateAt
	intentDragMove
	intentDragRelease
	intentConnectPreview
	intentConnectRelease
	intentPan
)

const (
	// Gesture classification thresholds, in screen cells.
	moveThresholdBackground = 6
	moveThresholdNode       = 3

	// Multi-tap timing window.
	tapWindow = 280 * time.Millisecond

	// Nearest-node lookup: radius in graph units is max(nearestRadiusBase,
	// nearestRadiusZoomed/zoom).
	nearestRadiusBase   = 42.0
	nearestRadiusZoomed = 86.0

	// Zoom scale clamp. Terminal cells are coarse, so the usable range sits
	// well below 1:1.
	zoomMin     = 0.04
	zoomMax     = 1.2
	zoomDefault = 0.16
	zoomStep    = 1.15

	maxUndoDepth = 200

	// View-state writes coalesce within this window; stage transitions and
	// session end flush immediately.
	viewStateDebounce = 600 * time.Millisecond

	// Breadcrumb/ancestor walks stop after this many hops so a corrupted
	// parent chain cannot loop forever.
	maxAncestorHops = 64

	searchLimit = 20

	remoteTimeout = 5 * time.Second
)

// subjectBackground is the gesture subject for presses that hit no note.
// Real note ids are positive (server-assigned) or negative (local drafts),
// never zero.
const subjectBackground int64 = 0
