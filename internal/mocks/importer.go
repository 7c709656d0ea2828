// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mocks

import (
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/servaldna/rhizome-fetch/types"
)

// MockImporter is a gomock mock of importer.Importer.
type MockImporter struct {
	ctrl     *gomock.Controller
	recorder *MockImporterMockRecorder
}

// MockImporterMockRecorder is the EXPECT() recorder for MockImporter.
type MockImporterMockRecorder struct {
	mock *MockImporter
}

// NewMockImporter constructs a MockImporter.
func NewMockImporter(ctrl *gomock.Controller) *MockImporter {
	mock := &MockImporter{ctrl: ctrl}
	mock.recorder = &MockImporterMockRecorder{mock}
	return mock
}

// EXPECT returns the recorder used to set up expectations.
func (m *MockImporter) EXPECT() *MockImporterMockRecorder {
	return m.recorder
}

// ImportManifestOnly mocks importer.Importer.ImportManifestOnly.
func (m *MockImporter) ImportManifestOnly(man *types.Manifest) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ImportManifestOnly", man)
	ret0, _ := ret[0].(error)
	return ret0
}

// ImportManifestOnly indicates an expected call of ImportManifestOnly.
func (mr *MockImporterMockRecorder) ImportManifestOnly(man interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ImportManifestOnly", reflect.TypeOf((*MockImporter)(nil).ImportManifestOnly), man)
}

// ImportPayload mocks importer.Importer.ImportPayload.
func (m *MockImporter) ImportPayload(man *types.Manifest, payloadPath string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ImportPayload", man, payloadPath)
	ret0, _ := ret[0].(error)
	return ret0
}

// ImportPayload indicates an expected call of ImportPayload.
func (mr *MockImporterMockRecorder) ImportPayload(man, payloadPath interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ImportPayload", reflect.TypeOf((*MockImporter)(nil).ImportPayload), man, payloadPath)
}

// ImportManifestByPrefix mocks importer.Importer.ImportManifestByPrefix.
func (m *MockImporter) ImportManifestByPrefix(raw []byte) (*types.Manifest, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ImportManifestByPrefix", raw)
	ret0, _ := ret[0].(*types.Manifest)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ImportManifestByPrefix indicates an expected call of ImportManifestByPrefix.
func (mr *MockImporterMockRecorder) ImportManifestByPrefix(raw interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ImportManifestByPrefix", reflect.TypeOf((*MockImporter)(nil).ImportManifestByPrefix), raw)
}
