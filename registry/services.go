// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package registry

import (
	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

func services() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "services",
		Description: "Services",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":                mgmtapi.StringAttr,
			"description":         mgmtapi.StringAttr,
			"display":             mgmtapi.BooleanAttr,
			"retired":             mgmtapi.BooleanAttr,
			"retires_on":          mgmtapi.DateTimeAttr,
			"service_template_id": mgmtapi.IntegerAttr,
		}),
		Virtual: map[string]mgmtapi.VirtualAttr{
			"vms_count": countChildren("vms", "service_id"),
			// aggregated from member vms, no stable ordering key
			"power_state": servicePowerState,
		},
		Unsortable: map[string]bool{"power_state": true},
		Associations: map[string]mgmtapi.Association{
			"service_template": {Collection: "service_templates", Key: "service_template_id"},
		},
		Subcollections: map[string]mgmtapi.Subcollection{
			"tags": tagsSub(),
			"vms": {
				Name:       "vms",
				Collection: "vms",
				ForeignKey: "service_id",
			},
		},
		Actions: concat(crudActions("services"),
			[]mgmtapi.ActionSpec{
				{
					Name:       "retire",
					Scope:      mgmtapi.ResourceScope,
					Identifier: ident("services", "retire"),
					Async:      true,
				},
				{
					Name:       "retire",
					Scope:      mgmtapi.CollectionScope,
					Identifier: ident("services", "retire"),
					Async:      true,
				},
			},
			tagActions("services")),
		ReadIdentifier: readIdent("services"),
		Validate:       requireName,
	}
}

// servicePowerState reports "on" when every member vm is powered on,
// "off" when none are, and "partial" otherwise.
func servicePowerState(r *mgmtapi.Record, store mgmtapi.Storage) interface{} {
	if store == nil {
		return nil
	}
	vms, err := store.List("vms")
	if err != nil {
		return nil
	}
	total, on := 0, 0
	for _, vm := range vms {
		if id, ok := vm.IDAttr("service_id"); ok && id == r.ID {
			total++
			if vm.StringAttr("power_state") == "on" {
				on++
			}
		}
	}
	switch {
	case total == 0:
		return nil
	case on == total:
		return "on"
	case on == 0:
		return "off"
	}
	return "partial"
}

func serviceTemplates() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "service_templates",
		Description: "Service Templates",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":              mgmtapi.StringAttr,
			"description":       mgmtapi.StringAttr,
			"display":           mgmtapi.BooleanAttr,
			"prov_type":         mgmtapi.StringAttr,
			"service_dialog_id": mgmtapi.IntegerAttr,
		}),
		Associations: map[string]mgmtapi.Association{
			"service_dialog": {Collection: "service_dialogs", Key: "service_dialog_id"},
		},
		Subcollections: map[string]mgmtapi.Subcollection{
			"tags": tagsSub(),
		},
		Actions: concat(crudActions("service_templates"),
			[]mgmtapi.ActionSpec{
				{
					Name:       "order",
					Scope:      mgmtapi.ResourceScope,
					Identifier: ident("service_templates", "order"),
				},
				{
					Name:       "order",
					Scope:      mgmtapi.CollectionScope,
					Identifier: ident("service_templates", "order"),
				},
			},
			tagActions("service_templates")),
		ReadIdentifier: readIdent("service_templates"),
		Validate:       requireName,
	}
}

func serviceDialogs() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "service_dialogs",
		Description: "Service Dialogs",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":        mgmtapi.StringAttr,
			"description": mgmtapi.StringAttr,
			"label":       mgmtapi.StringAttr,
		}),
		Actions:        crudActions("service_dialogs"),
		ReadIdentifier: readIdent("service_dialogs"),
		Validate:       requireName,
	}
}

func serviceOrders() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "service_orders",
		Description: "Service Orders",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":      mgmtapi.StringAttr,
			"state":     mgmtapi.StringAttr,
			"user_id":   mgmtapi.IntegerAttr,
			"placed_at": mgmtapi.DateTimeAttr,
		}),
		Subcollections: map[string]mgmtapi.Subcollection{
			"service_requests": {
				Name:       "service_requests",
				Collection: "service_requests",
				ForeignKey: "service_order_id",
			},
		},
		Actions: concat(crudActions("service_orders"),
			[]mgmtapi.ActionSpec{
				{
					Name:       "order",
					Scope:      mgmtapi.ResourceScope,
					Identifier: ident("service_orders", "order"),
				},
				{
					Name:       "clear",
					Scope:      mgmtapi.ResourceScope,
					Identifier: ident("service_orders", "clear"),
				},
				{
					Name:       "order",
					Scope:      mgmtapi.CollectionScope,
					Identifier: ident("service_orders", "order"),
				},
				{
					Name:       "clear",
					Scope:      mgmtapi.CollectionScope,
					Identifier: ident("service_orders", "clear"),
				},
			}),
		ReadIdentifier:  readIdent("service_orders"),
		OwnerKey:        "user_id",
		AdminIdentifier: ident("service_orders", "admin"),
	}
}

func serviceRequests() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "service_requests",
		Description: "Service Requests",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"description":      mgmtapi.StringAttr,
			"approval_state":   mgmtapi.StringAttr,
			"request_state":    mgmtapi.StringAttr,
			"reason":           mgmtapi.StringAttr,
			"requester_id":     mgmtapi.IntegerAttr,
			"service_order_id": mgmtapi.IntegerAttr,
		}),
		Associations: map[string]mgmtapi.Association{
			"requester": {Collection: "users", Key: "requester_id"},
		},
		Actions: []mgmtapi.ActionSpec{
			{Name: "approve", Scope: mgmtapi.ResourceScope, Identifier: ident("service_requests", "approve")},
			{Name: "deny", Scope: mgmtapi.ResourceScope, Identifier: ident("service_requests", "deny")},
			{Name: "cancel", Scope: mgmtapi.ResourceScope, Identifier: ident("service_requests", "cancel")},
			{Name: "approve", Scope: mgmtapi.CollectionScope, Identifier: ident("service_requests", "approve")},
			{Name: "deny", Scope: mgmtapi.CollectionScope, Identifier: ident("service_requests", "deny")},
			{Name: "edit", Scope: mgmtapi.ResourceScope, Identifier: ident("service_requests", "edit")},
			{Name: "delete", Scope: mgmtapi.ResourceScope, Identifier: ident("service_requests", "delete")},
			{Name: "delete", Scope: mgmtapi.CollectionScope, Identifier: ident("service_requests", "delete")},
		},
		ReadIdentifier:  readIdent("service_requests"),
		OwnerKey:        "requester_id",
		AdminIdentifier: ident("service_requests", "approve"),
	}
}

// users is an internal collection backing ownership scoping and the
// service_requests "requester" association.
func users() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "users",
		Description: "Users",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":   mgmtapi.StringAttr,
			"userid": mgmtapi.StringAttr,
			"email":  mgmtapi.StringAttr,
		}),
		ReadIdentifier: readIdent("users"),
	}
}
