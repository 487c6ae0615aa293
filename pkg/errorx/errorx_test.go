package errorx

import (
	"errors"
	"net/http"
	"testing"
)

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrapf(cause, CodeDBError, "AppendMessage 写入消息 %s", "a_b")

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is lost the cause")
	}
	if GetCode(err) != CodeDBError {
		t.Fatalf("code = %d, want %d", GetCode(err), CodeDBError)
	}
	if got := PublicMessage(err); got != ErrServerBusy.Msg {
		t.Fatalf("public message leaked internals: %q", got)
	}
}

func TestGetCodeDefaultsToServerBusy(t *testing.T) {
	if GetCode(errors.New("boom")) != CodeServerBusy {
		t.Fatalf("plain errors should map to CodeServerBusy")
	}
}

func TestEventCodeAndHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		event  string
		status int
	}{
		{ErrNotFriends, EventNotFriends, http.StatusForbidden},
		{ErrInvalidParam, EventInvalidInput, http.StatusBadRequest},
		{New(CodeNotFound, "消息不存在"), EventNotFound, http.StatusNotFound},
		{ErrServerBusy, EventSendFailed, http.StatusInternalServerError},
		{ErrUnauthorized, EventSendFailed, http.StatusUnauthorized},
	}
	for _, c := range cases {
		if got := EventCode(c.err, EventSendFailed); got != c.event {
			t.Errorf("EventCode(%v) = %s, want %s", c.err, got, c.event)
		}
		if got := HTTPStatus(GetCode(c.err)); got != c.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.status)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(Wrap(errors.New("record not found"), CodeNotFound, "x")) {
		t.Fatalf("wrapped not found should be detected")
	}
	if IsNotFound(ErrServerBusy) {
		t.Fatalf("server busy is not a not-found error")
	}
}

func TestWithOpKeepsPublicMessage(t *testing.T) {
	inner := Wrap(errors.New("record not found"), CodeNotFound, "消息不存在")
	err := WithOp("GetMessage", inner)

	if GetCode(err) != CodeNotFound {
		t.Fatalf("code = %d, want %d", GetCode(err), CodeNotFound)
	}
	if got := PublicMessage(err); got != "消息不存在" {
		t.Fatalf("public message = %q, want inner message", got)
	}
	if got := err.Error(); got != "GetMessage: 消息不存在: record not found" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is lost the inner error")
	}

	plain := WithOp("AppendMessage", errors.New("boom"))
	if GetCode(plain) != CodeServerBusy || PublicMessage(plain) != ErrServerBusy.Msg {
		t.Fatalf("plain error: code=%d msg=%q", GetCode(plain), PublicMessage(plain))
	}
	if WithOp("x", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
}
