package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func mw(fn func(req *core.Request, res *core.Response, next core.Next, end core.End) error) core.Middleware {
	return core.MiddlewareFunc(func(_ context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) error {
		return fn(req, res, next, end)
	})
}

func handle(t *testing.T, e *Engine, req *core.Request) testutil.Outcome {
	t.Helper()
	rec := testutil.NewRecorder()
	e.Handle(context.Background(), req, rec.Callback)
	out, ok := rec.Wait(time.Second)
	require.True(t, ok, "completion callback did not fire")
	assert.Equal(t, 1, rec.Calls())
	return out
}

// MockMiddleware for asserting how the engine invokes middleware.
type MockMiddleware struct {
	mock.Mock
}

func (m *MockMiddleware) ServeRPC(ctx context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) error {
	args := m.Called(ctx, req, res, next, end)
	return args.Error(0)
}

func TestNew_Defaults(t *testing.T) {
	e := New()

	assert.Equal(t, DefaultConfig, e.config)
	assert.NotNil(t, e.logger)
	assert.NotNil(t, e.Callbacks())
	assert.Equal(t, 0, e.Len())
}

func TestNew_Options(t *testing.T) {
	cm := NewCallbackManager()
	e := New(func(o *Options) {
		o.Config.RequireEnd = true
		o.Config.MaxSteps = 3
		o.Logger = nil
		o.Callbacks = cm
	})

	assert.True(t, e.config.RequireEnd)
	assert.Equal(t, 3, e.config.MaxSteps)
	assert.NotNil(t, e.logger)
	assert.Same(t, cm, e.Callbacks())
}

func TestEngine_Push_AppendsInOrder(t *testing.T) {
	e := New()
	trace := &testutil.Trace{}

	e.Push(trace.Step("a"), trace.Step("b"))
	e.Push(trace.Step("a"))
	e.Push(testutil.SetResult(true))

	assert.Equal(t, 4, e.Len())

	out := handle(t, e, testutil.NewRequestBuilder().Build())
	require.NoError(t, out.Err)
	assert.Equal(t, []string{"a", "b", "a", "a:return", "b:return", "a:return"}, trace.Events())
}

func TestEngine_Handle_Basic(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		res.Result = "ok"
		end(nil)
		return nil
	}))

	req := testutil.NewRequestBuilder().ID(1).Method("hello").Build()
	out := handle(t, e, req)

	require.NoError(t, out.Err)
	require.NotNil(t, out.Res)
	assert.Equal(t, 1, out.Res.ID)
	assert.Equal(t, "2.0", out.Res.JSONRPC)
	assert.Equal(t, "ok", out.Res.Result)
	assert.Nil(t, out.Res.Error)
}

func TestEngine_Handle_EndWithErrorStripsResult(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		res.Result = "partial"
		end(errors.New("boom"))
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.EqualError(t, out.Err, "boom")
	assert.Nil(t, out.Res.Result)
	require.NotNil(t, out.Res.Error)
	assert.Equal(t, core.CodeInternal, out.Res.Error.Code)
	assert.Equal(t, "boom", out.Res.Error.Message)
}

func TestEngine_Handle_EndWithRPCErrorKeepsCode(t *testing.T) {
	e := New()
	e.Push(mw(func(req *core.Request, _ *core.Response, _ core.Next, end core.End) error {
		end(core.ErrMethodNotFound(req.Method))
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Method("nope").Build())

	require.Error(t, out.Err)
	var rpcErr *core.Error
	require.ErrorAs(t, out.Err, &rpcErr)
	assert.Equal(t, core.CodeMethodNotFound, out.Res.Error.Code)
	assert.Equal(t, "method not found: nope", out.Res.Error.Message)
}

func TestEngine_Handle_ThrowStopsDescent(t *testing.T) {
	e := New()
	var ran atomic.Bool
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, _ core.End) error {
		res.Result = "set before throw"
		return errors.New("foo")
	}))
	e.Push(mw(func(_ *core.Request, _ *core.Response, _ core.Next, end core.End) error {
		ran.Store(true)
		end(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.EqualError(t, out.Err, "foo")
	assert.False(t, ran.Load())
	assert.Nil(t, out.Res.Result)
	assert.Equal(t, "foo", out.Res.Error.Message)
}

func TestEngine_Handle_PanicIsThrow(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, _ *core.Response, _ core.Next, _ core.End) error {
		panic("something went wrong")
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "middleware panicked")
	assert.Contains(t, out.Err.Error(), "something went wrong")
	assert.Nil(t, out.Res.Result)
}

func TestEngine_Handle_ReturnHandlersRunInReverseOrder(t *testing.T) {
	e := New()
	trace := &testutil.Trace{}
	e.Push(trace.Step("first"), trace.Step("second"), trace.Step("third"))
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		trace.Add("end")
		res.Result = true
		end(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.NoError(t, out.Err)
	assert.Equal(t, []string{
		"first", "second", "third", "end",
		"third:return", "second:return", "first:return",
	}, trace.Events())
}

func TestEngine_Handle_HandlersBeforeThrowStillRun(t *testing.T) {
	e := New()
	trace := &testutil.Trace{}
	e.Push(trace.Step("a"))
	e.Push(mw(func(_ *core.Request, _ *core.Response, _ core.Next, _ core.End) error {
		return errors.New("thrown")
	}))
	e.Push(trace.Step("never"))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.EqualError(t, out.Err, "thrown")
	assert.Equal(t, []string{"a", "a:return"}, trace.Events())
}

func TestEngine_Handle_ReturnHandlerCanObserveError(t *testing.T) {
	e := New()
	var seen *core.Error
	e.Push(mw(func(_ *core.Request, res *core.Response, next core.Next, _ core.End) error {
		next(func() error {
			seen = res.Error
			return nil
		})
		return nil
	}))
	e.Push(mw(func(_ *core.Request, _ *core.Response, _ core.Next, end core.End) error {
		end(core.NewError(-32000, "server error"))
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.Error(t, out.Err)
	require.NotNil(t, seen)
	assert.Equal(t, -32000, seen.Code)
}

func TestEngine_Handle_ReturnHandlerErrorSupersedesSuccess(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, _ *core.Response, next core.Next, _ core.End) error {
		next(func() error { return errors.New("foo") })
		return nil
	}))
	e.Push(testutil.SetResult(true))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.EqualError(t, out.Err, "foo")
	assert.Nil(t, out.Res.Result)
	assert.Equal(t, "foo", out.Res.Error.Message)
}

func TestEngine_Handle_ReturnHandlerErrorSupersedesError(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, _ *core.Response, next core.Next, _ core.End) error {
		next(func() error { return errors.New("second") })
		return nil
	}))
	e.Push(mw(func(_ *core.Request, _ *core.Response, _ core.Next, end core.End) error {
		end(errors.New("first"))
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.EqualError(t, out.Err, "second")
	assert.Equal(t, "second", out.Res.Error.Message)
}

func TestEngine_Handle_ReturnHandlerErrorStopsUnwind(t *testing.T) {
	e := New()
	trace := &testutil.Trace{}
	e.Push(trace.Step("outer"))
	e.Push(mw(func(_ *core.Request, _ *core.Response, next core.Next, _ core.End) error {
		next(func() error { return errors.New("stop") })
		return nil
	}))
	e.Push(trace.Step("inner"))
	e.Push(testutil.SetResult(1))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.EqualError(t, out.Err, "stop")
	assert.Equal(t, []string{"outer", "inner", "inner:return"}, trace.Events())
}

func TestEngine_Handle_ReturnHandlerPanic(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, _ *core.Response, next core.Next, _ core.End) error {
		next(func() error { panic("unwind blew up") })
		return nil
	}))
	e.Push(testutil.SetResult(1))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "return handler panicked")
	assert.Nil(t, out.Res.Result)
}

func TestEngine_Handle_PendingErrorOnEnd(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		res.Result = "ignored"
		res.Error = core.NewError(-32001, "pending")
		end(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.Error(t, out.Err)
	assert.Equal(t, "pending", out.Err.Error())
	assert.Nil(t, out.Res.Result)
	assert.Equal(t, -32001, out.Res.Error.Code)
}

func TestEngine_Handle_StrayErrorStrippedOnSuccess(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, res *core.Response, next core.Next, _ core.End) error {
		next(func() error {
			res.Error = core.NewError(-32000, "stray")
			return nil
		})
		return nil
	}))
	e.Push(testutil.SetResult("fine"))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.NoError(t, out.Err)
	assert.Equal(t, "fine", out.Res.Result)
	assert.Nil(t, out.Res.Error)
}

func TestEngine_Handle_ExhaustedWithResult(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, res *core.Response, next core.Next, _ core.End) error {
		res.Result = "implicit"
		next(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.NoError(t, out.Err)
	assert.Equal(t, "implicit", out.Res.Result)
}

func TestEngine_Handle_ExhaustedWithoutResult(t *testing.T) {
	e := New()
	e.Push(testutil.PassThrough())

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.ErrorIs(t, out.Err, ErrNoResult)
	assert.Equal(t, core.CodeInternal, out.Res.Error.Code)
	assert.Nil(t, out.Res.Result)
}

func TestEngine_Handle_EmptyStack(t *testing.T) {
	out := handle(t, New(), testutil.NewRequestBuilder().Build())

	require.ErrorIs(t, out.Err, ErrNoResult)
}

func TestEngine_Handle_RequireEnd(t *testing.T) {
	e := New(func(o *Options) { o.Config.RequireEnd = true })
	e.Push(mw(func(_ *core.Request, res *core.Response, next core.Next, _ core.End) error {
		res.Result = "not enough"
		next(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.ErrorIs(t, out.Err, ErrNotEnded)
	assert.Nil(t, out.Res.Result)
}

func TestEngine_Handle_NullResult(t *testing.T) {
	e := New()
	e.Push(testutil.SetResult(core.NullResult))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.NoError(t, out.Err)
	assert.True(t, out.Res.HasResult())
}

func TestEngine_Handle_ReassertsIDAndVersion(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		res.ID = "hijacked"
		res.JSONRPC = "1.0"
		res.Result = true
		end(nil)
		return nil
	}))

	req := testutil.NewRequestBuilder().ID("abc").Build()
	out := handle(t, e, req)

	require.NoError(t, out.Err)
	assert.Equal(t, "abc", out.Res.ID)
	assert.Equal(t, "2.0", out.Res.JSONRPC)
}

func TestEngine_Handle_DoesNotMutateRequest(t *testing.T) {
	e := New()
	e.Push(testutil.PassThrough(), testutil.SetResult(1))

	req := testutil.NewRequestBuilder().ID(7).Method("m").Params([]int{1, 2}).Build()
	before := *req

	handle(t, e, req)

	assert.Equal(t, before.ID, req.ID)
	assert.Equal(t, before.Method, req.Method)
	assert.Equal(t, before.JSONRPC, req.JSONRPC)
	assert.JSONEq(t, string(before.Params), string(req.Params))
	assert.Nil(t, req.Meta)
}

func TestEngine_Handle_AsyncNext(t *testing.T) {
	e := New()
	release := make(chan struct{})
	e.Push(mw(func(_ *core.Request, _ *core.Response, next core.Next, _ core.End) error {
		go func() {
			<-release
			next(nil)
		}()
		return nil
	}))
	e.Push(testutil.SetResult("later"))

	rec := testutil.NewRecorder()
	e.Handle(context.Background(), testutil.NewRequestBuilder().Build(), rec.Callback)

	assert.False(t, rec.Fired(), "call must stay suspended until next is called")

	close(release)
	out, ok := rec.Wait(time.Second)
	require.True(t, ok)
	require.NoError(t, out.Err)
	assert.Equal(t, "later", out.Res.Result)
	assert.Equal(t, 1, rec.Calls())
}

func TestEngine_Handle_AsyncEnd(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		go func() {
			time.Sleep(10 * time.Millisecond)
			res.Result = "async"
			end(nil)
		}()
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.NoError(t, out.Err)
	assert.Equal(t, "async", out.Res.Result)
}

func TestEngine_Handle_DuplicateSignalIgnored(t *testing.T) {
	e := New()
	var secondRuns atomic.Int32
	e.Push(mw(func(_ *core.Request, _ *core.Response, next core.Next, end core.End) error {
		next(nil)
		end(errors.New("too late"))
		next(nil)
		return nil
	}))
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		secondRuns.Add(1)
		res.Result = "ok"
		end(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.NoError(t, out.Err)
	assert.Equal(t, int32(1), secondRuns.Load())
}

func TestEngine_Handle_ErrorAfterNextIsThrow(t *testing.T) {
	e := New()
	var ran atomic.Bool
	e.Push(mw(func(_ *core.Request, _ *core.Response, next core.Next, _ core.End) error {
		next(nil)
		return errors.New("changed my mind")
	}))
	e.Push(mw(func(_ *core.Request, _ *core.Response, _ core.Next, end core.End) error {
		ran.Store(true)
		end(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.EqualError(t, out.Err, "changed my mind")
	assert.False(t, ran.Load())
}

func TestEngine_Handle_ErrorAfterEndIgnored(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		res.Result = "done"
		end(nil)
		return errors.New("ignored")
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.NoError(t, out.Err)
	assert.Equal(t, "done", out.Res.Result)
}

func TestEngine_Handle_ContextCancelledAfterCompletion(t *testing.T) {
	e := New()
	var captured context.Context
	e.Push(core.MiddlewareFunc(func(ctx context.Context, _ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		captured = ctx
		assert.NoError(t, ctx.Err())
		res.Result = 1
		end(nil)
		return nil
	}))

	handle(t, e, testutil.NewRequestBuilder().Build())

	require.NotNil(t, captured)
	assert.ErrorIs(t, captured.Err(), context.Canceled)
}

func TestEngine_Handle_NilCallback(t *testing.T) {
	e := New()
	e.Push(testutil.SetResult(1))

	assert.NotPanics(t, func() {
		e.Handle(context.Background(), testutil.NewRequestBuilder().Build(), nil)
	})
}

func TestEngine_Handle_MockMiddleware(t *testing.T) {
	m := &MockMiddleware{}
	req := testutil.NewRequestBuilder().Build()

	m.On("ServeRPC", mock.Anything, req, mock.AnythingOfType("*core.Response"), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			res := args.Get(2).(*core.Response)
			end := args.Get(4).(core.End)
			res.Result = "mocked"
			end(nil)
		}).
		Return(nil).
		Once()

	e := New()
	e.Push(m)
	out := handle(t, e, req)

	require.NoError(t, out.Err)
	assert.Equal(t, "mocked", out.Res.Result)
	m.AssertExpectations(t)
}

func TestEngine_Handle_StepLimit(t *testing.T) {
	e := New(func(o *Options) { o.Config.MaxSteps = 2 })
	e.Push(testutil.PassThrough(), testutil.PassThrough(), testutil.SetResult(1))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.ErrorIs(t, out.Err, ErrStepLimit)
	assert.Nil(t, out.Res.Result)
}

func TestEngine_Handle_LongFlatStackWithDefaults(t *testing.T) {
	e := New()
	for i := 0; i < 5000; i++ {
		e.Push(testutil.PassThrough())
	}
	e.Push(testutil.SetResult("bottom"))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.NoError(t, out.Err)
	assert.Equal(t, "bottom", out.Res.Result)
}

func TestEngine_Handle_IndependentConcurrentCalls(t *testing.T) {
	e := New()
	e.Push(mw(func(req *core.Request, res *core.Response, next core.Next, _ core.End) error {
		next(func() error {
			res.Set("echo", req.ID)
			return nil
		})
		return nil
	}))
	e.Push(mw(func(req *core.Request, res *core.Response, _ core.Next, end core.End) error {
		go func() {
			res.Result = fmt.Sprintf("result-%v", req.ID)
			end(nil)
		}()
		return nil
	}))

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 50; i++ {
		id := i
		g.Go(func() error {
			res, err := e.HandleSync(ctx, testutil.NewRequestBuilder().ID(id).Build())
			if err != nil {
				return err
			}
			if res.ID != id || res.Result != fmt.Sprintf("result-%d", id) {
				return fmt.Errorf("call %d got %v/%v", id, res.ID, res.Result)
			}
			if echo, _ := res.Get("echo"); echo != id {
				return fmt.Errorf("call %d saw handler state %v", id, echo)
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
}

func TestEngine_HandleSync_Success(t *testing.T) {
	e := New()
	e.Push(testutil.SetResult("sync"))

	res, err := e.HandleSync(context.Background(), testutil.NewRequestBuilder().Build())

	require.NoError(t, err)
	assert.Equal(t, "sync", res.Result)
}

func TestEngine_HandleSync_Error(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, _ *core.Response, _ core.Next, end core.End) error {
		end(errors.New("sync failure"))
		return nil
	}))

	res, err := e.HandleSync(context.Background(), testutil.NewRequestBuilder().Build())

	require.EqualError(t, err, "sync failure")
	require.NotNil(t, res)
	assert.Equal(t, "sync failure", res.Error.Message)
}

func TestEngine_HandleSync_Timeout(t *testing.T) {
	e := New()
	e.Push(mw(func(_ *core.Request, _ *core.Response, _ core.Next, _ core.End) error {
		return nil // never signals
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := e.HandleSync(ctx, testutil.NewRequestBuilder().Build())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, res)
}

func TestEngine_Callbacks_BeforeHandleRejects(t *testing.T) {
	var ran atomic.Bool
	cm := NewCallbackManager()
	cm.RegisterCallback(NewRequestValidationCallback(func(req *core.Request) error {
		if req.Method == "" {
			return core.NewError(core.CodeInvalidRequest, "invalid request")
		}
		return nil
	}))

	e := New(func(o *Options) { o.Callbacks = cm })
	e.Push(mw(func(_ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		ran.Store(true)
		res.Result = 1
		end(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().Method("").Build())

	require.Error(t, out.Err)
	assert.False(t, ran.Load())
	assert.Equal(t, core.CodeInvalidRequest, out.Res.Error.Code)

	out = handle(t, e, testutil.NewRequestBuilder().Build())
	require.NoError(t, out.Err)
	assert.True(t, ran.Load())
}

func TestEngine_Callbacks_BeforeMiddlewareIsThrow(t *testing.T) {
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeMiddleware, func(_ context.Context, cc *CallbackContext) error {
		if cc.Step == 2 {
			return errors.New("blocked at step 2")
		}
		return nil
	}))

	e := New(func(o *Options) { o.Callbacks = cm })
	trace := &testutil.Trace{}
	e.Push(trace.Step("one"), trace.Step("two"), testutil.SetResult(1))

	out := handle(t, e, testutil.NewRequestBuilder().Build())

	require.EqualError(t, out.Err, "blocked at step 2")
	assert.Equal(t, []string{"one", "one:return"}, trace.Events())
}

func TestEngine_Callbacks_OnErrorAndAfterHandle(t *testing.T) {
	var onError, afterHandle []string
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackOnError, func(_ context.Context, cc *CallbackContext) error {
		onError = append(onError, cc.Err.Error())
		return nil
	}))
	cm.RegisterCallback(NewFunctionCallback(CallbackAfterHandle, func(_ context.Context, cc *CallbackContext) error {
		afterHandle = append(afterHandle, fmt.Sprintf("%v:%v", cc.Response.ID, cc.Err))
		return errors.New("logged only")
	}))

	e := New(func(o *Options) { o.Callbacks = cm })
	e.Push(mw(func(req *core.Request, res *core.Response, _ core.Next, end core.End) error {
		if req.Method == "fail" {
			end(errors.New("failed"))
			return nil
		}
		res.Result = "ok"
		end(nil)
		return nil
	}))

	out := handle(t, e, testutil.NewRequestBuilder().ID(1).Method("fail").Build())
	require.Error(t, out.Err)
	out = handle(t, e, testutil.NewRequestBuilder().ID(2).Method("pass").Build())
	require.NoError(t, out.Err)

	assert.Equal(t, []string{"failed"}, onError)
	assert.Equal(t, []string{"1:failed", "2:<nil>"}, afterHandle)
}
