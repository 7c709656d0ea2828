// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mocks

import (
	"net"
	"reflect"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/servaldna/rhizome-fetch/eventloop"
)

// MockScheduler is a gomock mock of eventloop.Scheduler.
type MockScheduler struct {
	ctrl     *gomock.Controller
	recorder *MockSchedulerMockRecorder
}

// MockSchedulerMockRecorder is the EXPECT() recorder for MockScheduler.
type MockSchedulerMockRecorder struct {
	mock *MockScheduler
}

// NewMockScheduler constructs a MockScheduler.
func NewMockScheduler(ctrl *gomock.Controller) *MockScheduler {
	mock := &MockScheduler{ctrl: ctrl}
	mock.recorder = &MockSchedulerMockRecorder{mock}
	return mock
}

// EXPECT returns the recorder used to set up expectations.
func (m *MockScheduler) EXPECT() *MockSchedulerMockRecorder {
	return m.recorder
}

// Watch mocks eventloop.Scheduler.Watch.
func (m *MockScheduler) Watch(conn net.Conn, dir eventloop.Readiness, cb func()) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Watch", conn, dir, cb)
	ret0, _ := ret[0].(error)
	return ret0
}

// Watch indicates an expected call of Watch.
func (mr *MockSchedulerMockRecorder) Watch(conn, dir, cb interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Watch", reflect.TypeOf((*MockScheduler)(nil).Watch), conn, dir, cb)
}

// Unwatch mocks eventloop.Scheduler.Unwatch.
func (m *MockScheduler) Unwatch(conn net.Conn) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Unwatch", conn)
}

// Unwatch indicates an expected call of Unwatch.
func (mr *MockSchedulerMockRecorder) Unwatch(conn interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Unwatch", reflect.TypeOf((*MockScheduler)(nil).Unwatch), conn)
}

// AfterFunc mocks eventloop.Scheduler.AfterFunc.
func (m *MockScheduler) AfterFunc(d time.Duration, cb func()) eventloop.TimerHandle {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AfterFunc", d, cb)
	ret0, _ := ret[0].(eventloop.TimerHandle)
	return ret0
}

// AfterFunc indicates an expected call of AfterFunc.
func (mr *MockSchedulerMockRecorder) AfterFunc(d, cb interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AfterFunc", reflect.TypeOf((*MockScheduler)(nil).AfterFunc), d, cb)
}

// MockTimerHandle is a gomock mock of eventloop.TimerHandle.
type MockTimerHandle struct {
	ctrl     *gomock.Controller
	recorder *MockTimerHandleMockRecorder
}

// MockTimerHandleMockRecorder is the EXPECT() recorder for MockTimerHandle.
type MockTimerHandleMockRecorder struct {
	mock *MockTimerHandle
}

// NewMockTimerHandle constructs a MockTimerHandle.
func NewMockTimerHandle(ctrl *gomock.Controller) *MockTimerHandle {
	mock := &MockTimerHandle{ctrl: ctrl}
	mock.recorder = &MockTimerHandleMockRecorder{mock}
	return mock
}

// EXPECT returns the recorder used to set up expectations.
func (m *MockTimerHandle) EXPECT() *MockTimerHandleMockRecorder {
	return m.recorder
}

// Cancel mocks eventloop.TimerHandle.Cancel.
func (m *MockTimerHandle) Cancel() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Cancel")
}

// Cancel indicates an expected call of Cancel.
func (mr *MockTimerHandleMockRecorder) Cancel() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Cancel", reflect.TypeOf((*MockTimerHandle)(nil).Cancel))
}
