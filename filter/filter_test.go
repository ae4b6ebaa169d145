// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// fakeStore is just enough of a storage backend to resolve one
// association hop.
type fakeStore struct {
	records map[string]map[uint64]*mgmtapi.Record
}

func (s *fakeStore) List(collection string) ([]*mgmtapi.Record, error) {
	var out []*mgmtapi.Record
	for _, rec := range s.records[collection] {
		out = append(out, rec)
	}
	return out, nil
}

func (s *fakeStore) Find(collection string, id uint64) (*mgmtapi.Record, error) {
	rec, ok := s.records[collection][id]
	if !ok {
		return nil, mgmtapi.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) FindByName(collection, name string) (*mgmtapi.Record, error) {
	for _, rec := range s.records[collection] {
		if rec.Name() == name {
			return rec, nil
		}
	}
	return nil, mgmtapi.ErrNotFound
}

func (s *fakeStore) Create(collection string, attrs map[string]interface{}) (*mgmtapi.Record, error) {
	return nil, mgmtapi.ErrNotFound
}

func (s *fakeStore) Update(collection string, id uint64, attrs map[string]interface{}) (*mgmtapi.Record, error) {
	return nil, mgmtapi.ErrNotFound
}

func (s *fakeStore) Delete(collection string, id uint64) error {
	return mgmtapi.ErrNotFound
}

func testEvaluator() (Evaluator, *mgmtapi.Descriptor) {
	vms := &mgmtapi.Descriptor{
		Name: "vms",
		Attributes: map[string]mgmtapi.AttrType{
			"name":        mgmtapi.StringAttr,
			"vendor":      mgmtapi.StringAttr,
			"cpus":        mgmtapi.IntegerAttr,
			"power_state": mgmtapi.StringAttr,
			"retired":     mgmtapi.BooleanAttr,
			"retires_on":  mgmtapi.DateAttr,
			"last_scan":   mgmtapi.DateTimeAttr,
			"host_id":     mgmtapi.IntegerAttr,
		},
		Associations: map[string]mgmtapi.Association{
			"host": {Collection: "hosts", Key: "host_id"},
		},
	}
	hosts := &mgmtapi.Descriptor{
		Name: "hosts",
		Attributes: map[string]mgmtapi.AttrType{
			"name": mgmtapi.StringAttr,
		},
	}
	registry := mgmtapi.NewRegistry([]*mgmtapi.Descriptor{vms, hosts})
	store := &fakeStore{records: map[string]map[uint64]*mgmtapi.Record{
		"hosts": {
			7: {ID: 7, Attrs: map[string]interface{}{"name": "alpha"}},
		},
	}}
	return Evaluator{Registry: registry, Store: store}, vms
}

func vm(id uint64, attrs map[string]interface{}) *mgmtapi.Record {
	return &mgmtapi.Record{ID: id, Attrs: attrs}
}

func TestParseBasic(t *testing.T) {
	expr, err := Parse([]string{"name='aa'"})
	if !assert.NoError(t, err) {
		return
	}
	if assert.Len(t, expr.Conditions, 1) {
		cond := expr.Conditions[0]
		assert.Equal(t, "name", cond.Attr)
		assert.Equal(t, OpEq, cond.Op)
		assert.Equal(t, "aa", cond.Value)
		assert.False(t, cond.Or)
	}
	assert.False(t, expr.HasOr)
}

func TestParseOrPrefix(t *testing.T) {
	expr, err := Parse([]string{"name='aa%'", "or name='bb%'"})
	if !assert.NoError(t, err) {
		return
	}
	if assert.Len(t, expr.Conditions, 2) {
		assert.Equal(t, OpMatch, expr.Conditions[0].Op)
		assert.True(t, expr.Conditions[1].Or)
	}
	assert.True(t, expr.HasOr)
}

func TestParseAssociation(t *testing.T) {
	expr, err := Parse([]string{"host.name=alpha"})
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "host", expr.Conditions[0].Assoc)
	assert.Equal(t, "name", expr.Conditions[0].Attr)
}

func TestParseTwoHops(t *testing.T) {
	_, err := Parse([]string{"host.cluster.name=alpha"})
	if assert.Error(t, err) {
		assert.Equal(t, "Filtering of attributes with more than one association away is not supported", err.Error())
	}
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse([]string{"!!!"})
	assert.Error(t, err)
}

func TestValidateUnknownAttribute(t *testing.T) {
	ev, desc := testEvaluator()
	expr, err := Parse([]string{"flavor=large"})
	if !assert.NoError(t, err) {
		return
	}
	err = ev.Validate(expr, desc)
	if assert.Error(t, err) {
		assert.Equal(t, "Must filter on valid attributes for resource", err.Error())
	}
}

func TestValidateDatetimeOperators(t *testing.T) {
	ev, desc := testEvaluator()
	for _, op := range []string{"<=", ">=", "!="} {
		expr, err := Parse([]string{"last_scan" + op + "2016-01-01"})
		if !assert.NoError(t, err) {
			continue
		}
		err = ev.Validate(expr, desc)
		if assert.Error(t, err, "operator %s", op) {
			assert.Equal(t, "Unsupported operator for datetime: "+op, err.Error())
		}
	}

	expr, err := Parse([]string{"last_scan>2016-01-01"})
	if assert.NoError(t, err) {
		assert.NoError(t, ev.Validate(expr, desc))
	}
}

func TestValidateDatetimeEquality(t *testing.T) {
	ev, desc := testEvaluator()
	expr, err := Parse([]string{"last_scan=2016-01-05T00:00:00Z"})
	if !assert.NoError(t, err) {
		return
	}
	if !assert.NoError(t, ev.Validate(expr, desc)) {
		return
	}
	scanned := vm(1, map[string]interface{}{
		"last_scan": time.Date(2016, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	ok, err := ev.Match(expr, desc, scanned)
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}

	expr, err = Parse([]string{"last_scan=NULL"})
	if !assert.NoError(t, err) {
		return
	}
	if !assert.NoError(t, ev.Validate(expr, desc)) {
		return
	}
	ok, err = ev.Match(expr, desc, scanned)
	if assert.NoError(t, err) {
		assert.False(t, ok)
	}
	ok, err = ev.Match(expr, desc, vm(2, map[string]interface{}{}))
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}
}

func TestValidateDatetimeFormat(t *testing.T) {
	ev, desc := testEvaluator()
	expr, err := Parse([]string{"last_scan>foobar"})
	if !assert.NoError(t, err) {
		return
	}
	err = ev.Validate(expr, desc)
	if assert.Error(t, err) {
		assert.Equal(t, "Bad format for datetime: foobar", err.Error())
	}
}

func TestMatchString(t *testing.T) {
	ev, desc := testEvaluator()
	expr, _ := Parse([]string{"vendor=vmware"})
	rec := vm(1, map[string]interface{}{"vendor": "vmware"})
	ok, err := ev.Match(expr, desc, rec)
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}
	rec = vm(2, map[string]interface{}{"vendor": "redhat"})
	ok, err = ev.Match(expr, desc, rec)
	if assert.NoError(t, err) {
		assert.False(t, ok)
	}
}

func TestMatchPattern(t *testing.T) {
	ev, desc := testEvaluator()
	expr, _ := Parse([]string{"name='aa%'"})
	for name, want := range map[string]bool{
		"aa1": true, "aa": true, "ba1": false, "xaa": false,
	} {
		ok, err := ev.Match(expr, desc, vm(1, map[string]interface{}{"name": name}))
		if assert.NoError(t, err) {
			assert.Equal(t, want, ok, "name %q", name)
		}
	}
}

func TestMatchStarPattern(t *testing.T) {
	ev, desc := testEvaluator()
	expr, _ := Parse([]string{"name='*sample*'"})
	ok, err := ev.Match(expr, desc, vm(1, map[string]interface{}{"name": "a sample vm"}))
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}
}

func TestMatchOrGroups(t *testing.T) {
	ev, desc := testEvaluator()
	// (name like aa%) OR (name like bb% AND cpus >= 4)
	expr, err := Parse([]string{"name='aa%'", "or name='bb%'", "cpus>=4"})
	if !assert.NoError(t, err) {
		return
	}
	tests := []struct {
		name string
		cpus float64
		want bool
	}{
		{"aa1", 1, true},
		{"bb1", 4, true},
		{"bb1", 2, false},
		{"cc1", 8, false},
	}
	for _, test := range tests {
		rec := vm(1, map[string]interface{}{"name": test.name, "cpus": test.cpus})
		ok, err := ev.Match(expr, desc, rec)
		if assert.NoError(t, err) {
			assert.Equal(t, test.want, ok, "name=%s cpus=%v", test.name, test.cpus)
		}
	}
}

func TestMatchUnion(t *testing.T) {
	ev, desc := testEvaluator()
	expr, _ := Parse([]string{"name='aa%'", "or name='bb%'", "cpus>=4"})
	// union ignores the AND-joined cpus condition
	rec := vm(1, map[string]interface{}{"name": "bb1", "cpus": 1.0})
	ok, err := ev.MatchUnion(expr, desc, rec)
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}
	rec = vm(2, map[string]interface{}{"name": "cc1", "cpus": 8.0})
	ok, err = ev.MatchUnion(expr, desc, rec)
	if assert.NoError(t, err) {
		assert.False(t, ok)
	}
}

func TestMatchAssociation(t *testing.T) {
	ev, desc := testEvaluator()
	expr, _ := Parse([]string{"host.name=alpha"})
	rec := vm(1, map[string]interface{}{"host_id": uint64(7)})
	ok, err := ev.Match(expr, desc, rec)
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}
	rec = vm(2, map[string]interface{}{"host_id": uint64(8)})
	ok, err = ev.Match(expr, desc, rec)
	if assert.NoError(t, err) {
		assert.False(t, ok)
	}
}

func TestMatchCompressedID(t *testing.T) {
	ev, desc := testEvaluator()
	expr, _ := Parse([]string{"id='1r5'"})
	ok, err := ev.Match(expr, desc, vm(1000000000005, nil))
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}
	ok, err = ev.Match(expr, desc, vm(5, nil))
	if assert.NoError(t, err) {
		assert.False(t, ok)
	}
}

func TestMatchNull(t *testing.T) {
	ev, desc := testEvaluator()
	expr, _ := Parse([]string{"retires_on=null"})
	ok, err := ev.Match(expr, desc, vm(1, map[string]interface{}{}))
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}
	ok, err = ev.Match(expr, desc, vm(2, map[string]interface{}{"retires_on": "2016-01-01"}))
	if assert.NoError(t, err) {
		assert.False(t, ok)
	}
}

func TestMatchBoolean(t *testing.T) {
	ev, desc := testEvaluator()
	expr, _ := Parse([]string{"retired=true"})
	ok, err := ev.Match(expr, desc, vm(1, map[string]interface{}{"retired": true}))
	if assert.NoError(t, err) {
		assert.True(t, ok)
	}
	ok, err = ev.Match(expr, desc, vm(2, map[string]interface{}{"retired": false}))
	if assert.NoError(t, err) {
		assert.False(t, ok)
	}
}
