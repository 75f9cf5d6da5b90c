// Package adwatch discovers newly published classified-ad listings on a
// marketplace site and forwards unseen ones to subscribers.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/).
package adwatch
