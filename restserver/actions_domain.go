// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
	"github.com/diffeo/go-mgmtapi/restdata"
)

// The domain behaviors behind the registered actions: lifecycle tasks,
// request approval, service ordering, and generic object definition
// property editing.

// gerunds names the in-progress form of each asynchronous action, used
// both in task names and in action result messages.
var gerunds = map[string]string{
	"start":   "starting",
	"stop":    "stopping",
	"suspend": "suspending",
	"scan":    "scanning",
	"retire":  "retiring",
	"refresh": "refreshing",
}

// performLifecycle checks the action's precondition against the
// record's current state and enqueues the task.  A failed precondition
// is a business rejection, not an error.
func (api *restAPI) performLifecycle(ctx *context, spec mgmtapi.ActionSpec, desc *mgmtapi.Descriptor, rec *mgmtapi.Record) (restdata.ActionResult, error) {
	label := fmt.Sprintf("%s id: %s", mgmtapi.TypeName(desc.Name), mgmtapi.CompressID(rec.ID))
	switch spec.Name {
	case "start":
		if rec.StringAttr("power_state") == "on" {
			return restdata.ActionResult{
				Message: label + " is already powered on",
				Href:    resourceHref(desc.Name, rec.ID),
			}, nil
		}
	case "stop", "suspend":
		if rec.StringAttr("power_state") != "on" {
			return restdata.ActionResult{
				Message: label + " is not powered on",
				Href:    resourceHref(desc.Name, rec.ID),
			}, nil
		}
	case "retire":
		if retired, ok := rec.Attrs["retired"].(bool); ok && retired {
			return restdata.ActionResult{
				Message: label + " is already retired",
				Href:    resourceHref(desc.Name, rec.ID),
			}, nil
		}
	}

	gerund := gerunds[spec.Name]
	message := fmt.Sprintf("%s id: %s name: '%s' %s", desc.Name, mgmtapi.CompressID(rec.ID), rec.Name(), gerund)
	task, err := api.Tasks.Enqueue(message, fmt.Sprintf("%s %s", mgmtapi.TypeName(desc.Name), gerund))
	if err != nil {
		return restdata.ActionResult{}, err
	}
	return restdata.ActionResult{
		Success:  true,
		Message:  message,
		Href:     resourceHref(desc.Name, rec.ID),
		TaskID:   mgmtapi.CompressID(task.ID),
		TaskHref: resourceHref("tasks", task.ID),
	}, nil
}

// performApproval handles approve, deny, and cancel on service
// requests.
func (api *restAPI) performApproval(ctx *context, spec mgmtapi.ActionSpec, desc *mgmtapi.Descriptor, rec *mgmtapi.Record, payload map[string]interface{}) (restdata.ActionResult, error) {
	href := resourceHref(desc.Name, rec.ID)
	switch spec.Name {
	case "approve", "deny":
		if rec.StringAttr("approval_state") != "pending_approval" {
			return restdata.ActionResult{
				Message: fmt.Sprintf("Service request %s is not pending", mgmtapi.CompressID(rec.ID)),
				Href:    href,
			}, nil
		}
		reason := stringField(payload, "reason")
		if spec.Name == "deny" && reason == "" {
			return restdata.ActionResult{}, restdata.ErrBadRequest{
				Err: errors.New("Must specify a reason for denying a service request"),
			}
		}
		state := "approved"
		if spec.Name == "deny" {
			state = "denied"
		}
		attrs := map[string]interface{}{"approval_state": state}
		if reason != "" {
			attrs["reason"] = reason
		}
		if _, err := api.Store.Update(desc.Name, rec.ID, attrs); err != nil {
			return restdata.ActionResult{}, err
		}
		return restdata.ActionResult{
			Success: true,
			Message: fmt.Sprintf("Service request %s", state),
			Href:    href,
		}, nil
	case "cancel":
		if rec.StringAttr("request_state") == "cancelled" {
			return restdata.ActionResult{
				Message: fmt.Sprintf("Service request %s is already cancelled", mgmtapi.CompressID(rec.ID)),
				Href:    href,
			}, nil
		}
		attrs := map[string]interface{}{"request_state": "cancelled"}
		if _, err := api.Store.Update(desc.Name, rec.ID, attrs); err != nil {
			return restdata.ActionResult{}, err
		}
		return restdata.ActionResult{
			Success: true,
			Message: "Service request cancelled",
			Href:    href,
		}, nil
	}
	return restdata.ActionResult{}, restdata.ErrBadRequest{
		Err: fmt.Errorf("Unsupported Action %s for the %s %s specified", spec.Name, desc.Name, spec.Scope),
	}
}

// orderTemplate orders a service template: it files a service request
// into the caller's shopping cart, creating the cart if needed.
func (api *restAPI) orderTemplate(ctx *context, template *mgmtapi.Record) (restdata.ActionResult, error) {
	cart, err := api.shoppingCart(ctx)
	if err != nil {
		return restdata.ActionResult{}, err
	}
	request, err := api.Store.Create("service_requests", map[string]interface{}{
		"description":      fmt.Sprintf("Provisioning Service [%s]", template.Name()),
		"approval_state":   "pending_approval",
		"request_state":    "pending",
		"requester_id":     ctx.Identity.UserID,
		"service_order_id": cart.ID,
		"created_at":       time.Now().UTC(),
	})
	if err != nil {
		return restdata.ActionResult{}, err
	}
	return restdata.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Ordered %s", template.Name()),
		Href:    resourceHref("service_requests", request.ID),
	}, nil
}

// orderCart submits a whole service order: the order leaves the cart
// state and its requests become active.
func (api *restAPI) orderCart(ctx *context, order *mgmtapi.Record) (restdata.ActionResult, error) {
	href := resourceHref("service_orders", order.ID)
	if order.StringAttr("state") == "ordered" {
		return restdata.ActionResult{
			Message: fmt.Sprintf("Service order %s is already ordered", mgmtapi.CompressID(order.ID)),
			Href:    href,
		}, nil
	}
	attrs := map[string]interface{}{
		"state":     "ordered",
		"placed_at": time.Now().UTC(),
	}
	if _, err := api.Store.Update("service_orders", order.ID, attrs); err != nil {
		return restdata.ActionResult{}, err
	}
	requests, err := api.cartRequests(order)
	if err != nil {
		return restdata.ActionResult{}, err
	}
	for _, request := range requests {
		update := map[string]interface{}{"request_state": "active"}
		if _, err := api.Store.Update("service_requests", request.ID, update); err != nil {
			return restdata.ActionResult{}, err
		}
	}
	return restdata.ActionResult{
		Success: true,
		Message: fmt.Sprintf("service_orders id: %s ordered", mgmtapi.CompressID(order.ID)),
		Href:    href,
	}, nil
}

// clearCart removes every service request from an order without
// submitting them.
func (api *restAPI) clearCart(ctx *context, order *mgmtapi.Record) (restdata.ActionResult, error) {
	requests, err := api.cartRequests(order)
	if err != nil {
		return restdata.ActionResult{}, err
	}
	for _, request := range requests {
		if err := api.Store.Delete("service_requests", request.ID); err != nil {
			return restdata.ActionResult{}, err
		}
	}
	return restdata.ActionResult{
		Success: true,
		Message: fmt.Sprintf("service_orders id: %s cleared", mgmtapi.CompressID(order.ID)),
		Href:    resourceHref("service_orders", order.ID),
	}, nil
}

// shoppingCart finds the caller's open cart order, creating one on
// first use.
func (api *restAPI) shoppingCart(ctx *context) (*mgmtapi.Record, error) {
	orders, err := api.Store.List("service_orders")
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		if owner, ok := order.IDAttr("user_id"); ok && owner == ctx.Identity.UserID {
			if order.StringAttr("state") == "cart" {
				return order, nil
			}
		}
	}
	return api.Store.Create("service_orders", map[string]interface{}{
		"name":       "Default Order",
		"state":      "cart",
		"user_id":    ctx.Identity.UserID,
		"created_at": time.Now().UTC(),
	})
}

func (api *restAPI) cartRequests(order *mgmtapi.Record) ([]*mgmtapi.Record, error) {
	all, err := api.Store.List("service_requests")
	if err != nil {
		return nil, err
	}
	var out []*mgmtapi.Record
	for _, request := range all {
		if id, ok := request.IDAttr("service_order_id"); ok && id == order.ID {
			out = append(out, request)
		}
	}
	return out, nil
}

// editDefinitionProperties applies one of the add/remove property
// actions to a generic object definition's properties hash.  The
// merged hash is revalidated before it is stored, so a bad attribute
// type fails the whole action and leaves the definition unchanged.
func (api *restAPI) editDefinitionProperties(ctx *context, spec mgmtapi.ActionSpec, desc *mgmtapi.Descriptor, rec *mgmtapi.Record, payload map[string]interface{}) (restdata.ActionResult, error) {
	properties, _ := rec.Attrs["properties"].(map[string]interface{})
	merged := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		merged[k] = v
	}

	var section, verb string
	switch spec.Name {
	case "add_attributes", "remove_attributes":
		section = "attributes"
	case "add_associations", "remove_associations":
		section = "associations"
	case "add_methods", "remove_methods":
		section = "methods"
	}
	adding := spec.Name[:4] == "add_"
	if adding {
		verb = "adding"
	} else {
		verb = "removing"
	}

	if section == "methods" {
		methods := stringList(merged["methods"])
		changes := stringList(payload["methods"])
		if adding {
			for _, method := range changes {
				if !containsString(methods, method) {
					methods = append(methods, method)
				}
			}
		} else {
			var kept []string
			for _, method := range methods {
				if !containsString(changes, method) {
					kept = append(kept, method)
				}
			}
			methods = kept
		}
		merged["methods"] = methods
	} else {
		table, _ := merged[section].(map[string]interface{})
		updated := make(map[string]interface{}, len(table))
		for k, v := range table {
			updated[k] = v
		}
		changes, _ := payload[section].(map[string]interface{})
		for name, value := range changes {
			if adding {
				updated[name] = value
			} else {
				delete(updated, name)
			}
		}
		merged[section] = updated
	}

	if _, err := mgmtapi.ExtractObjectDefProperties(merged); err != nil {
		return restdata.ActionResult{}, err
	}
	updated, err := api.Store.Update(desc.Name, rec.ID, map[string]interface{}{"properties": merged})
	if err != nil {
		return restdata.ActionResult{}, err
	}
	return restdata.ActionResult{
		Success: true,
		Message: fmt.Sprintf("%s id: %s %s %s", desc.Name, mgmtapi.CompressID(updated.ID), verb, section),
		Href:    resourceHref(desc.Name, updated.ID),
	}, nil
}

func stringList(raw interface{}) []string {
	var out []string
	switch list := raw.(type) {
	case []string:
		out = append(out, list...)
	case []interface{}:
		for _, entry := range list {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, entry := range list {
		if entry == s {
			return true
		}
	}
	return false
}
