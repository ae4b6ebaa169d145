// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package registry

import (
	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

func providers() *mgmtapi.Descriptor {
	d := &mgmtapi.Descriptor{
		Name:        "providers",
		Description: "Providers",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":      mgmtapi.StringAttr,
			"hostname":  mgmtapi.StringAttr,
			"ipaddress": mgmtapi.StringAttr,
			"type":      mgmtapi.StringAttr,
			"zone":      mgmtapi.StringAttr,
		}),
		Virtual: map[string]mgmtapi.VirtualAttr{
			"total_vms": countChildren("vms", "provider_id"),
		},
		Subcollections: map[string]mgmtapi.Subcollection{
			"tags": tagsSub(),
			"vms": {
				Name:       "vms",
				Collection: "vms",
				ForeignKey: "provider_id",
				Filterable: true,
			},
			"custom_attributes": {
				Name:       "custom_attributes",
				Collection: "custom_attributes",
				ForeignKey: "provider_id",
			},
		},
		Actions: concat(crudActions("providers"),
			[]mgmtapi.ActionSpec{
				{
					Name:       "refresh",
					Scope:      mgmtapi.ResourceScope,
					Identifier: ident("providers", "refresh"),
					Async:      true,
				},
				{
					Name:       "refresh",
					Scope:      mgmtapi.CollectionScope,
					Identifier: ident("providers", "refresh"),
					Async:      true,
				},
			},
			tagActions("providers"),
			customAttrActions("providers")),
		ReadIdentifier: readIdent("providers"),
		Validate:       requireName,
	}
	return d
}

func vms() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "vms",
		Description: "Virtual Machines",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":        mgmtapi.StringAttr,
			"vendor":      mgmtapi.StringAttr,
			"guest_os":    mgmtapi.StringAttr,
			"power_state": mgmtapi.StringAttr,
			"cpus":        mgmtapi.IntegerAttr,
			"memory_mb":   mgmtapi.IntegerAttr,
			"retired":     mgmtapi.BooleanAttr,
			"retires_on":  mgmtapi.DateTimeAttr,
			"provider_id": mgmtapi.IntegerAttr,
			"host_id":     mgmtapi.IntegerAttr,
			"service_id":  mgmtapi.IntegerAttr,
		}),
		Virtual: map[string]mgmtapi.VirtualAttr{
			"host_name": lookupAttr("host_id", "hosts", "name"),
		},
		Associations: map[string]mgmtapi.Association{
			"host":     {Collection: "hosts", Key: "host_id"},
			"provider": {Collection: "providers", Key: "provider_id"},
			"service":  {Collection: "services", Key: "service_id"},
		},
		Subcollections: map[string]mgmtapi.Subcollection{
			"tags": tagsSub(),
			"custom_attributes": {
				Name:       "custom_attributes",
				Collection: "custom_attributes",
				ForeignKey: "vm_id",
			},
		},
		Actions: concat(crudActions("vms"),
			powerActions("vms"),
			tagActions("vms"),
			customAttrActions("vms")),
		ReadIdentifier: readIdent("vms"),
	}
}

// powerActions are the asynchronous lifecycle actions on vms.  Every
// one enqueues a task; the power-state preconditions live in the
// dispatcher.
func powerActions(collection string) []mgmtapi.ActionSpec {
	var out []mgmtapi.ActionSpec
	for _, name := range []string{"start", "stop", "suspend", "scan", "retire"} {
		spec := mgmtapi.ActionSpec{
			Name:       name,
			Scope:      mgmtapi.ResourceScope,
			Identifier: ident(collection, name),
			Async:      true,
		}
		out = append(out, spec)
		spec.Scope = mgmtapi.CollectionScope
		out = append(out, spec)
	}
	return out
}

// hosts is an internal collection: it backs the vms "host" association
// and the host_name virtual attribute but registers no actions.
func hosts() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "hosts",
		Description: "Hosts",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":        mgmtapi.StringAttr,
			"hostname":    mgmtapi.StringAttr,
			"power_state": mgmtapi.StringAttr,
			"provider_id": mgmtapi.IntegerAttr,
		}),
		ReadIdentifier: readIdent("hosts"),
	}
}

// countChildren builds a virtual attribute counting records in another
// collection that point back at this one.
func countChildren(collection, foreignKey string) mgmtapi.VirtualAttr {
	return func(r *mgmtapi.Record, store mgmtapi.Storage) interface{} {
		if store == nil {
			return nil
		}
		children, err := store.List(collection)
		if err != nil {
			return nil
		}
		count := 0
		for _, child := range children {
			if id, ok := child.IDAttr(foreignKey); ok && id == r.ID {
				count++
			}
		}
		return count
	}
}

// lookupAttr builds a virtual attribute that follows a foreign key and
// reads an attribute off the target record.
func lookupAttr(key, collection, attr string) mgmtapi.VirtualAttr {
	return func(r *mgmtapi.Record, store mgmtapi.Storage) interface{} {
		if store == nil {
			return nil
		}
		id, ok := r.IDAttr(key)
		if !ok {
			return nil
		}
		target, err := store.Find(collection, id)
		if err != nil {
			return nil
		}
		value, _ := target.Attr(attr)
		return value
	}
}
