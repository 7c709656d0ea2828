// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mocks

import (
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/servaldna/rhizome-fetch/types"
)

// MockManifestStore is a gomock mock of store.ManifestStore.
type MockManifestStore struct {
	ctrl     *gomock.Controller
	recorder *MockManifestStoreMockRecorder
}

// MockManifestStoreMockRecorder is the EXPECT() recorder for MockManifestStore.
type MockManifestStoreMockRecorder struct {
	mock *MockManifestStore
}

// NewMockManifestStore constructs a MockManifestStore.
func NewMockManifestStore(ctrl *gomock.Controller) *MockManifestStore {
	mock := &MockManifestStore{ctrl: ctrl}
	mock.recorder = &MockManifestStoreMockRecorder{mock}
	return mock
}

// EXPECT returns the recorder used to set up expectations.
func (m *MockManifestStore) EXPECT() *MockManifestStoreMockRecorder {
	return m.recorder
}

// StoredVersion mocks store.ManifestStore.StoredVersion.
func (m *MockManifestStore) StoredVersion(bid types.BID) (uint64, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StoredVersion", bid)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// StoredVersion indicates an expected call of StoredVersion.
func (mr *MockManifestStoreMockRecorder) StoredVersion(bid interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StoredVersion", reflect.TypeOf((*MockManifestStore)(nil).StoredVersion), bid)
}

// HasValidPayload mocks store.ManifestStore.HasValidPayload.
func (m *MockManifestStore) HasValidPayload(payloadHash string) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "HasValidPayload", payloadHash)
	ret0, _ := ret[0].(bool)
	return ret0
}

// HasValidPayload indicates an expected call of HasValidPayload.
func (mr *MockManifestStoreMockRecorder) HasValidPayload(payloadHash interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "HasValidPayload", reflect.TypeOf((*MockManifestStore)(nil).HasValidPayload), payloadHash)
}
