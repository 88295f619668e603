package feed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"book_replay/internal/domain"
	"book_replay/internal/event"
	"book_replay/pkg/quant"
)

// layouts lists, per action, the field names that follow the action code.
var layouts = map[domain.Action][]string{
	domain.ActionNew:     {domain.FieldInstrument, domain.FieldOrderID, domain.FieldSide, domain.FieldQty, domain.FieldPrice},
	domain.ActionCancel:  {domain.FieldOrderID, domain.FieldSide, domain.FieldQty, domain.FieldPrice},
	domain.ActionAmend:   {domain.FieldOrderID, domain.FieldSide, domain.FieldQty, domain.FieldPrice},
	domain.ActionExecute: {domain.FieldInstrument, domain.FieldQty, domain.FieldPrice},
}

// ParseLine parses one feed line into a freshly allocated record.
func ParseLine(line string, lineNum uint64) (*event.Record, error) {
	rec := &event.Record{}
	if err := ParseInto(rec, line, lineNum); err != nil {
		return nil, err
	}
	return rec, nil
}

// ParseInto parses one feed line into rec, which must be zeroed.
//
// The grammar is comma separated with optional blanks around each field:
//
//	N,<iid>,<id>,<B|S>,<qty>,<price>
//	R,<id>,<B|S>,<qty>,<price>
//	M,<id>,<B|S>,<qty>,<price>
//	X,<iid>,<qty>,<price>
//	#<free text>
//
// Only syntax is checked here. Range checks (positive ids, quantities and
// prices) belong to the Processor.
func ParseInto(rec *event.Record, line string, lineNum uint64) error {
	rec.Line = lineNum
	rec.Side = domain.SideUnknown

	if strings.HasPrefix(line, "#") {
		rec.Action = domain.ActionComment
		rec.Comment = line
		return nil
	}

	fields := strings.Split(line, ",")
	code := strings.TrimSpace(fields[0])
	if len(code) != 1 || len(fields) == 1 {
		return &domain.FieldError{Line: lineNum, Field: domain.FieldAction}
	}

	act := domain.Action(code[0])
	layout, ok := layouts[act]
	if !ok {
		return &domain.FieldError{Line: lineNum, Field: domain.FieldAction}
	}
	rec.Action = act

	values := fields[1:]
	for i, name := range layout {
		if i == len(values) {
			break
		}
		if err := parseField(rec, name, strings.TrimSpace(values[i])); err != nil {
			return &domain.FieldError{Line: lineNum, Field: name, Err: err}
		}
	}

	switch {
	case len(values) < len(layout):
		// the last present field is the one missing its delimiter
		return &domain.FieldError{Line: lineNum, Field: layout[len(values)-1], Err: errMissingFields}
	case len(values) > len(layout):
		return &domain.FieldError{Line: lineNum, Field: layout[len(layout)-1], Err: errTrailingFields}
	}
	return nil
}

var (
	errMissingFields  = errors.New("missing fields")
	errTrailingFields = errors.New("trailing fields")
)

func parseField(rec *event.Record, name, val string) error {
	switch name {
	case domain.FieldInstrument:
		v, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return err
		}
		rec.InstrumentID = domain.InstrumentID(v)
	case domain.FieldOrderID:
		v, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return err
		}
		rec.OrderID = domain.OrderID(v)
	case domain.FieldSide:
		if len(val) != 1 {
			return fmt.Errorf("side %q", val)
		}
		side, ok := domain.ParseSide(val[0])
		if !ok {
			return fmt.Errorf("side %q", val)
		}
		rec.Side = side
	case domain.FieldQty:
		v, err := strconv.ParseUint(val, 10, 63)
		if err != nil {
			return err
		}
		rec.Qty = int64(v)
	case domain.FieldPrice:
		p, err := quant.ParsePriceMicros(val)
		if err != nil {
			return err
		}
		rec.Price = p
	}
	return nil
}
