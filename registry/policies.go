// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package registry

import (
	"fmt"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

func policies() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "policies",
		Description: "Policies",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":        mgmtapi.StringAttr,
			"description": mgmtapi.StringAttr,
			"mode":        mgmtapi.StringAttr,
			"towhat":      mgmtapi.StringAttr,
			"active":      mgmtapi.BooleanAttr,
		}),
		Subcollections: map[string]mgmtapi.Subcollection{
			"tags": tagsSub(),
		},
		Actions:        concat(crudActions("policies"), tagActions("policies")),
		ReadIdentifier: readIdent("policies"),
		Validate:       requireName,
		CheckDelete:    policyNotInProfile,
	}
}

// policyNotInProfile vetoes deleting a policy that any profile still
// contains.  Membership lives on the policy record as the
// policy_profile_ids list.
func policyNotInProfile(r *mgmtapi.Record, store mgmtapi.Storage) error {
	ids, ok := r.Attrs["policy_profile_ids"].([]interface{})
	if ok && len(ids) > 0 {
		return mgmtapi.InUseError{
			Message: fmt.Sprintf("Policy %s is referenced by one or more policy profiles", r.Name()),
		}
	}
	return nil
}

func policyProfiles() *mgmtapi.Descriptor {
	return &mgmtapi.Descriptor{
		Name:        "policy_profiles",
		Description: "Policy Profiles",
		Attributes: timestamps(map[string]mgmtapi.AttrType{
			"name":        mgmtapi.StringAttr,
			"description": mgmtapi.StringAttr,
			"read_only":   mgmtapi.BooleanAttr,
		}),
		Virtual: map[string]mgmtapi.VirtualAttr{
			"policy_count": memberCount("policies", "policy_profile_ids"),
		},
		Subcollections: map[string]mgmtapi.Subcollection{
			"policies": {
				Name:       "policies",
				Collection: "policies",
				MemberKey:  "policy_profile_ids",
			},
		},
		Actions: concat(crudActions("policy_profiles"),
			[]mgmtapi.ActionSpec{
				{
					Name:       "assign",
					Scope:      mgmtapi.SubcollectionScope,
					Identifier: ident("policy_profiles", "policy_assign"),
				},
				{
					Name:       "unassign",
					Scope:      mgmtapi.SubcollectionScope,
					Identifier: ident("policy_profiles", "policy_unassign"),
				},
			}),
		ReadIdentifier: readIdent("policy_profiles"),
		Validate:       requireName,
	}
}

// memberCount builds a virtual attribute counting records in another
// collection whose member-id list contains this record's id.
func memberCount(collection, memberKey string) mgmtapi.VirtualAttr {
	return func(r *mgmtapi.Record, store mgmtapi.Storage) interface{} {
		if store == nil {
			return nil
		}
		members, err := store.List(collection)
		if err != nil {
			return nil
		}
		count := 0
		for _, member := range members {
			ids, _ := member.Attrs[memberKey].([]interface{})
			for _, raw := range ids {
				if id, ok := mgmtapi.AsID(raw); ok && id == r.ID {
					count++
					break
				}
			}
		}
		return count
	}
}
