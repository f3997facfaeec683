package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/openspm/tableops/logger"
)

// Logger is a mock of logger.Interface
type Logger struct {
	mock.Mock
}

func (_m *Logger) LogMode(level logger.LogLevel) logger.Interface {
	ret := _m.Called(level)

	var r0 logger.Interface
	if rf, ok := ret.Get(0).(func(logger.LogLevel) logger.Interface); ok {
		r0 = rf(level)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(logger.Interface)
		}
	}

	return r0
}

func (_m *Logger) Info(ctx context.Context, msg string, data ...interface{}) {
	var _ca []interface{}
	_ca = append(_ca, ctx, msg)
	_ca = append(_ca, data...)
	_m.Called(_ca...)
}

func (_m *Logger) Warn(ctx context.Context, msg string, data ...interface{}) {
	var _ca []interface{}
	_ca = append(_ca, ctx, msg)
	_ca = append(_ca, data...)
	_m.Called(_ca...)
}

func (_m *Logger) Error(ctx context.Context, msg string, data ...interface{}) {
	var _ca []interface{}
	_ca = append(_ca, ctx, msg)
	_ca = append(_ca, data...)
	_m.Called(_ca...)
}

func (_m *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	_m.Called(ctx, begin, fc, err)
}

// NewLogger creates a Logger whose expectations are asserted when t ends
func NewLogger(t interface {
	mock.TestingT
	Cleanup(func())
}) *Logger {
	m := &Logger{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
