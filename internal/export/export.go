// Package export writes and reads vital readings as a framed binary stream.
//
// Each frame is a 1-byte flag, a 4-byte big-endian length and a payload.
// Data frames (flag 0x00) hold one protobuf-encoded VitalRecord:
//
//	1 date         string (YYYY-MM-DD)
//	2 systolic     varint
//	3 diastolic    varint
//	4 heart_rate   varint
//	5 temperature  double
//	6 glucose      varint
//	7 blood_status string
//	8 water        varint
//	9 created_at   google.protobuf.Timestamp
//
// The stream ends with one trailer frame (flag 0x80) carrying "count:<n>\r\n".
package export

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"homecare-dashboard/internal/model"
)

const ContentType = "application/vnd.homecare.vitals+proto"

const (
	flagData    byte = 0x00
	flagTrailer byte = 0x80

	headerLen = 5
	// MaxFrame bounds a single payload; a record is well under 100 bytes.
	MaxFrame = 64 << 10
)

const (
	fieldDate = iota + 1
	fieldSystolic
	fieldDiastolic
	fieldHeartRate
	fieldTemperature
	fieldGlucose
	fieldBloodStatus
	fieldWater
	fieldCreatedAt
)

var (
	ErrTruncated     = errors.New("export: truncated frame")
	ErrFrameTooLarge = errors.New("export: frame too large")
	ErrNoTrailer     = errors.New("export: missing trailer")
)

func writeFrame(w io.Writer, flag byte, payload []byte) error {
	var hdr [headerLen]byte
	hdr[0] = flag
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func appendVarint(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func marshalRecord(v model.VitalResult) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldDate, protowire.BytesType)
	b = protowire.AppendString(b, v.Day.Format("2006-01-02"))
	b = appendVarint(b, fieldSystolic, v.Systolic)
	b = appendVarint(b, fieldDiastolic, v.Diastolic)
	b = appendVarint(b, fieldHeartRate, v.HeartRate)
	b = protowire.AppendTag(b, fieldTemperature, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(v.Temperature))
	b = appendVarint(b, fieldGlucose, v.Glucose)
	b = protowire.AppendTag(b, fieldBloodStatus, protowire.BytesType)
	b = protowire.AppendString(b, v.BloodStatus)
	b = appendVarint(b, fieldWater, v.WaterBalance)
	if !v.CreatedAt.IsZero() {
		ts, err := proto.Marshal(timestamppb.New(v.CreatedAt))
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldCreatedAt, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}
	return b, nil
}

// Encode writes rows followed by the trailer.
func Encode(w io.Writer, rows []model.VitalResult) error {
	bw := bufio.NewWriter(w)
	for _, r := range rows {
		payload, err := marshalRecord(r)
		if err != nil {
			return err
		}
		if err := writeFrame(bw, flagData, payload); err != nil {
			return err
		}
	}
	if err := writeFrame(bw, flagTrailer, []byte(fmt.Sprintf("count:%d\r\n", len(rows)))); err != nil {
		return err
	}
	return bw.Flush()
}

func unmarshalRecord(b []byte) (model.VitalResult, error) {
	var v model.VitalResult
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return v, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldDate && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return v, protowire.ParseError(n)
			}
			day, err := time.Parse("2006-01-02", s)
			if err != nil {
				return v, fmt.Errorf("export: bad date %q", s)
			}
			v.Day = day
			b = b[n:]
		case num == fieldBloodStatus && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return v, protowire.ParseError(n)
			}
			v.BloodStatus = s
			b = b[n:]
		case num == fieldTemperature && typ == protowire.Fixed64Type:
			x, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return v, protowire.ParseError(n)
			}
			v.Temperature = math.Float64frombits(x)
			b = b[n:]
		case num == fieldCreatedAt && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return v, protowire.ParseError(n)
			}
			ts := &timestamppb.Timestamp{}
			if err := proto.Unmarshal(raw, ts); err != nil {
				return v, err
			}
			v.CreatedAt = ts.AsTime()
			b = b[n:]
		case typ == protowire.VarintType && num >= fieldSystolic && num <= fieldWater:
			x, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return v, protowire.ParseError(n)
			}
			setInt(&v, num, int(int64(x)))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return v, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if v.Day.IsZero() {
		return v, errors.New("export: record without date")
	}
	return v, nil
}

func setInt(v *model.VitalResult, num protowire.Number, x int) {
	switch num {
	case fieldSystolic:
		v.Systolic = x
	case fieldDiastolic:
		v.Diastolic = x
	case fieldHeartRate:
		v.HeartRate = x
	case fieldGlucose:
		v.Glucose = x
	case fieldWater:
		v.WaterBalance = x
	}
}

// Decode reads a whole stream. The trailer count must match the number of
// data frames and nothing may follow the trailer.
func Decode(r io.Reader) ([]model.VitalResult, error) {
	br := bufio.NewReader(r)
	var out []model.VitalResult
	for {
		var hdr [headerLen]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoTrailer
			}
			return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		size := binary.BigEndian.Uint32(hdr[1:])
		if size > MaxFrame {
			return nil, ErrFrameTooLarge
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
		}

		switch hdr[0] {
		case flagData:
			v, err := unmarshalRecord(payload)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", len(out)+1, err)
			}
			out = append(out, v)
		case flagTrailer:
			n, err := trailerCount(payload)
			if err != nil {
				return nil, err
			}
			if n != len(out) {
				return nil, fmt.Errorf("export: trailer says %d records, got %d", n, len(out))
			}
			if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
				return nil, errors.New("export: data after trailer")
			}
			return out, nil
		default:
			return nil, fmt.Errorf("export: unknown frame flag 0x%02x", hdr[0])
		}
	}
}

func trailerCount(payload []byte) (int, error) {
	for _, line := range strings.Split(string(payload), "\r\n") {
		k, v, ok := strings.Cut(line, ":")
		if ok && strings.TrimSpace(k) == "count" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				return 0, fmt.Errorf("export: bad trailer count %q", v)
			}
			return n, nil
		}
	}
	return 0, errors.New("export: trailer without count")
}
