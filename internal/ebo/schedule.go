// Package ebo assembles compiled schedules into an EcoStruxure Building
// Operation import document.
package ebo

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"astrosched/internal/model"
)

const (
	DefaultVersion        = model.DefaultEBOVersion
	DefaultServerFullPath = "/Server 1"

	TypeMultistateSchedule = "schedule.NSPMultistateSchedule"
	TypeSpecialEvent       = "system.schedulecommon.propertytypes.SpecialEvent"
	TypeDateCalendarEntry  = "system.schedulecommon.propertytypes.calentry.DateCalendarEntry"
	TypeIntegerValuePair   = "system.schedulecommon.propertytypes.tvp.IntegerValuePair"

	// EventPriority is the priority given to every generated special event.
	EventPriority = 16
	// AnyYear makes a date calendar entry recur every year.
	AnyYear = 2155

	indentSpaces = 2
)

// Schedule is one multistate schedule: a name, an optional default and its
// day events in order.
type Schedule struct {
	Name         string
	DefaultValue *int
	Events       []model.DayEvent
}

// ObjectSet is the import document. Schedules keep their own top-level
// node; special-event identifiers run across all of them.
type ObjectSet struct {
	Version        string
	ServerFullPath string
	Schedules      []Schedule
}

// NewObjectSet fills in the default version and server path when empty.
func NewObjectSet(version, serverFullPath string, schedules ...Schedule) *ObjectSet {
	if version == "" {
		version = DefaultVersion
	}
	if serverFullPath == "" {
		serverFullPath = DefaultServerFullPath
	}
	return &ObjectSet{
		Version:        version,
		ServerFullPath: serverFullPath,
		Schedules:      schedules,
	}
}

// Add appends schedules after the existing ones.
func (s *ObjectSet) Add(schedules ...Schedule) {
	s.Schedules = append(s.Schedules, schedules...)
}

// EventCount is the total number of day events across all schedules.
func (s *ObjectSet) EventCount() int {
	n := 0
	for _, sc := range s.Schedules {
		n += len(sc.Events)
	}
	return n
}

// Document builds the element tree. Event identifiers and indexes are
// assigned by position in the concatenated event list, starting at 1 with no
// gaps.
func (s *ObjectSet) Document() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" `)
	doc.WriteSettings.CanonicalAttrVal = true

	root := element(&doc.Element, "ObjectSet",
		"ExportMode", "Standard",
		"Note", "TypesFirst",
		"SemanticsFilter", "Standard",
		"Version", s.Version,
	)

	meta := element(root, "MetaInformation")
	element(meta, "ExportMode", "Value", "Standard")
	element(meta, "SemanticsFilter", "Value", "None")
	element(meta, "RuntimeVersion", "Value", s.Version)
	element(meta, "SourceVersion", "Value", s.Version)
	element(meta, "ServerFullPath", "Value", s.ServerFullPath)

	exported := element(root, "ExportedObjects")

	index := 0
	for _, sc := range s.Schedules {
		node := element(exported, "OI", "NAME", sc.Name, "TYPE", TypeMultistateSchedule)
		if sc.DefaultValue != nil {
			element(node, "PI", "Name", "ScheduleDefault", "Value", strconv.Itoa(*sc.DefaultValue))
		}
		for _, ev := range sc.Events {
			index++
			specialEvent(node, index, ev)
		}
	}

	doc.Indent(indentSpaces)
	return doc
}

// element appends a child with attrs given as name, value pairs.
func element(parent *etree.Element, tag string, attrs ...string) *etree.Element {
	e := parent.CreateElement(tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		e.CreateAttr(attrs[i], attrs[i+1])
	}
	return e
}

func specialEvent(parent *etree.Element, index int, ev model.DayEvent) {
	n := element(parent, "OI",
		"NAME", EventID(index),
		"TYPE", TypeSpecialEvent,
		"hidden", "1",
	)
	element(n, "PI", "Name", "EventIndex", "Value", strconv.Itoa(index))
	element(n, "PI", "Name", "EventName", "Value", ev.Name)
	element(n, "PI", "Name", "EventPriority", "Value", strconv.Itoa(EventPriority))

	ep := element(n, "OI",
		"NAME", "EP",
		"TYPE", TypeDateCalendarEntry,
		"hidden", "1",
	)
	element(ep, "PI", "Name", "DayOfMonth", "Value", strconv.Itoa(ev.DayOfMonth))
	element(ep, "PI", "Name", "Month", "Value", strconv.Itoa(ev.Month))
	element(ep, "PI", "Name", "Year", "Value", strconv.Itoa(AnyYear))

	for i, e := range ev.Entries {
		valuePair(n, i+1, e)
	}
}

func valuePair(parent *etree.Element, index int, e model.ResolvedEntry) {
	n := element(parent, "OI",
		"NAME", ValuePairID(index),
		"TYPE", TypeIntegerValuePair,
		"hidden", "1",
	)
	element(n, "PI", "Name", "Hour", "Value", strconv.Itoa(e.Hour))
	element(n, "PI", "Name", "Minute", "Value", strconv.Itoa(e.Minute))
	if e.Value == nil {
		element(n, "PI", "Name", "Value", "Null", "1")
	} else {
		element(n, "PI", "Name", "Value", "Value", strconv.Itoa(*e.Value))
	}
}

// EventID is the special-event element name for a 1-based index.
func EventID(index int) string {
	return fmt.Sprintf("ES%05d", index)
}

// ValuePairID is the time-value-pair element name for a 1-based index.
func ValuePairID(index int) string {
	return fmt.Sprintf("TVP%05d", index)
}

// Encode writes the object set as XML.
func Encode(w io.Writer, s *ObjectSet) error {
	if s == nil {
		return fmt.Errorf("ebo: nil object set")
	}
	_, err := s.Document().WriteTo(w)
	return err
}

// Marshal is Encode into a byte slice.
func Marshal(s *ObjectSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
