// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mocks holds go.uber.org/mock/gomock mocks for the three
// external-collaborator boundaries the fetch engine is built against:
// eventloop.Scheduler, importer.Importer, and store.ManifestStore.
// Hand-written in the mockgen output shape rather than run through
// go generate, since the interfaces are small and stable.
package mocks

//go:generate mockgen -destination=scheduler.go -package=mocks github.com/servaldna/rhizome-fetch/eventloop Scheduler
//go:generate mockgen -destination=importer.go -package=mocks github.com/servaldna/rhizome-fetch/importer Importer
//go:generate mockgen -destination=store.go -package=mocks github.com/servaldna/rhizome-fetch/store ManifestStore
