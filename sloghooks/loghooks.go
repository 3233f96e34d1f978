// Package sloghooks provides a Hooks implementation backed by log/slog,
// with per-event sampling and key redaction for shared logs.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/replaycache"
)

type Options struct {
	// Sampling to avoid floods on hot replay loops; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ replaycache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(api, provider, key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("replaycache.hit",
		"api", api,
		"provider", provider,
		"key", h.redact(key))
}

func (h *Hooks) Miss(api, provider, key string, fallback bool) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Info("replaycache.miss",
		"api", api,
		"provider", provider,
		"key", h.redact(key),
		"fallback", fallback)
}

func (h *Hooks) BackendCall(op string, err error) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Warn("replaycache.backend_call", "op", op, "err", err)
		return
	}
	h.l.Debug("replaycache.backend_call", "op", op)
}

func (h *Hooks) RecordWritten(api, provider, key string, size int) {
	if h.l == nil {
		return
	}
	h.l.Debug("replaycache.record_written",
		"api", api,
		"provider", provider,
		"key", h.redact(key),
		"bytes", size)
}

func (h *Hooks) DecodeFallback(responseType string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("replaycache.decode_fallback",
		"response_type", responseType,
		"err", err)
}
