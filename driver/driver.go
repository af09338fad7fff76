// Package driver wraps the synchronous dcmio.Reader with the I/O and
// concurrency concerns the reader core deliberately stays free of: buffer
// refill from an io.Reader, backpressure, and cooperative cancellation
// (§5).
package driver

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
	"github.com/opendcm-go/dicom/dcmio"
	"github.com/opendcm-go/dicom/internal/dcmlog"
)

// bufferPool recycles the growable accumulator buffers Advance re-parses
// from, avoiding an allocation per opened stream.
var bufferPool = sync.Pool{
	New: func() interface{} { return make([]byte, 0, 64*1024) },
}

// Event is one item produced by a Driver's element stream: either a
// successfully decoded Element, or a terminal error. Exactly one of
// Element/Err/Done is meaningful.
type Event struct {
	Element *dataset.Element
	Err     *dcmerr.Error
	Done    bool
	// Meta reports, alongside Element, whether the reader was still in
	// FileMetaInfo when it produced the element.
	Meta bool
}

// Driver feeds a dcmio.Reader from an io.Reader, growing its accumulator
// buffer only as far as the reader's NeedBytes hint requires, and
// publishing decoded elements to a channel read by the caller.
type Driver struct {
	cfg    config.Config
	reader *dcmio.Reader
	src    *bufio.Reader

	buf []byte // accumulator: always holds the unconsumed tail re-offered to Advance

	elementCount int
}

// New constructs a Driver reading from src with the given configuration.
// issues, if non-nil, receives non-fatal conditions the reader reports
// while parsing.
func New(cfg config.Config, src io.Reader, issues dcmerr.IssueHandler) *Driver {
	r := dcmio.NewReader(cfg)
	r.Issues = issues
	return &Driver{
		cfg:    cfg,
		reader: r,
		src:    bufio.NewReaderSize(src, cfg.BufferSize),
		buf:    bufferPool.Get().([]byte)[:0],
	}
}

// Reader exposes the underlying dcmio.Reader, e.g. so a caller can set
// LazySource or LargeElementCallback before streaming begins.
func (d *Driver) Reader() *dcmio.Reader { return d.reader }

// Close returns the accumulator buffer to the pool. Safe to call once,
// after the element stream has been fully drained or abandoned.
func (d *Driver) Close() {
	if d.buf != nil {
		bufferPool.Put(d.buf[:0])
		d.buf = nil
	}
}

// fill grows the accumulator until it holds at least n bytes or the
// source is exhausted, returning the number of bytes actually added.
func (d *Driver) fill(n int) (int, error) {
	for len(d.buf) < n {
		if cap(d.buf) < n {
			grown := make([]byte, len(d.buf), n*2)
			copy(grown, d.buf)
			d.buf = grown
		}
		chunk := d.buf[len(d.buf):n]
		if len(chunk) == 0 {
			chunk = d.buf[len(d.buf):cap(d.buf)]
		}
		k, err := d.src.Read(chunk)
		d.buf = d.buf[:len(d.buf)+k]
		if err != nil {
			return k, err
		}
		if k == 0 {
			return 0, io.ErrNoProgress
		}
	}
	return len(d.buf), nil
}

// next performs one reader Advance cycle, refilling the accumulator as
// the reader asks, and draining consumed bytes from its front.
func (d *Driver) next() dcmio.Result {
	for {
		before := d.reader.Consumed()
		res := d.reader.Advance(d.buf)
		d.advanceAccumulator(before)
		switch res.Outcome {
		case dcmio.OutcomeNeedMore:
			need := res.NeedBytes
			if need <= len(d.buf) {
				need = len(d.buf) + 1
			}
			_, err := d.fill(need)
			if err == io.EOF || err == io.ErrNoProgress {
				eofRes := d.reader.EOF()
				if eofRes.Outcome == dcmio.OutcomeError {
					return eofRes
				}
				return eofRes
			}
			if err != nil {
				return dcmio.Result{Outcome: dcmio.OutcomeError, Err: dcmerr.New(dcmerr.DecodeError, d.reader.Consumed(), dcmerr.Critical, err.Error())}
			}
			continue
		default:
			consumed := d.reader.Consumed()
			_ = consumed
			return res
		}
	}
}

// advanceAccumulator drops the bytes the reader has now fully consumed
// from the front of the accumulator, keeping it bounded.
func (d *Driver) advanceAccumulator(before int64) {
	n := d.reader.Consumed() - before
	if n <= 0 {
		return
	}
	if int(n) >= len(d.buf) {
		d.buf = d.buf[:0]
		return
	}
	copy(d.buf, d.buf[n:])
	d.buf = d.buf[:len(d.buf)-int(n)]
}

// Elements returns a channel that yields one Event per decoded element,
// followed by a single Done or Err event, then closes. Parsing happens on
// an internal goroutine so the caller can apply backpressure by reading
// slowly; ctx cancellation is honored between reader invocations and at
// least once every cfg.CancelCheckInterval elements.
func (d *Driver) Elements(ctx context.Context) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		defer d.Close()
		for {
			if err := ctx.Err(); err != nil {
				out <- Event{Err: dcmerr.New(dcmerr.Cancelled, d.reader.Consumed(), dcmerr.Critical, "cancelled")}
				return
			}
			res := d.next()
			switch res.Outcome {
			case dcmio.OutcomeElement:
				d.elementCount++
				select {
				case out <- Event{Element: res.Element, Meta: d.reader.State() == dcmio.FileMetaInfo}:
				case <-ctx.Done():
					out <- Event{Err: dcmerr.New(dcmerr.Cancelled, d.reader.Consumed(), dcmerr.Critical, "cancelled")}
					return
				}
				if d.cfg.CancelCheckInterval > 0 && d.elementCount%d.cfg.CancelCheckInterval == 0 {
					if err := ctx.Err(); err != nil {
						out <- Event{Err: dcmerr.New(dcmerr.Cancelled, d.reader.Consumed(), dcmerr.Critical, "cancelled")}
						return
					}
				}
			case dcmio.OutcomeDone:
				out <- Event{Done: true}
				return
			case dcmio.OutcomeError:
				dcmlog.Warn().Err(res.Err).Msg("dataset parse aborted")
				out <- Event{Err: res.Err}
				return
			}
		}
	}()
	return out
}

// ReadAll drains an entire Driver into a fresh *dataset.Dataset, routing
// elements read while the reader is still in FileMetaInfo into meta and
// everything after into main. This is the synchronous convenience path;
// Elements is the streaming one.
func ReadAll(ctx context.Context, cfg config.Config, src io.Reader, issues dcmerr.IssueHandler) (meta, main *dataset.Dataset, err *dcmerr.Error) {
	d := New(cfg, src, issues)
	meta = dataset.New(nil)
	main = dataset.New(nil)
	sawMain := false
	for ev := range d.Elements(ctx) {
		if ev.Err != nil {
			return meta, main, ev.Err
		}
		if ev.Done {
			break
		}
		if ev.Element == nil {
			continue
		}
		if !sawMain && ev.Meta {
			meta.Insert(ev.Element)
			continue
		}
		sawMain = true
		main.Insert(ev.Element)
	}
	return meta, main, nil
}
