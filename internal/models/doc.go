// Package models defines the domain types shared by the catalog adapter, the acquisition engine and the
// history store.
//
// The package contains two categories of types:
//
// 1. Catalog DTOs: immutable values describing what the catalog returned
//   - [TrackDescriptor] : one track with its album context and cover art URL
//   - [ItemInfo] : playlist, album or track summary, rendered per kind in JSON
//   - [SearchResult] : one catalog search hit
//
// 2. History records: database-backed rows written after the fact
//   - [JobRecord] : a submitted job with its resolved item, folder and final status
//   - [AcquisitionRecord] : the terminal disposition of one track within a job
//
// History records implement [Model]; keyed stores such as the job repository implement [Repository].
// Nothing in the acquisition path reads history back, so a job behaves the same with or without it.
package models
