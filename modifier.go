package docengine

// applyModifierChecked computes newDoc = modify(oldDoc, updateQuery),
// deep-cloning oldDoc first so the index set's stored instance is never
// mutated in place until the update protocol commits it.
func applyModifierChecked(oldDoc Doc, updateQuery Doc) (Doc, error) {
	base := oldDoc.clone()
	out, hasModifier, err := applyModifiers(base, updateQuery)
	if err != nil {
		return nil, err
	}
	if !hasModifier {
		// A plain document replaces the base entirely, keeping _id stable.
		id, _ := oldDoc.getID()
		replacement := updateQuery.clone()
		replacement["_id"] = id
		out = replacement
	}
	if err := validateStructure(out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyModifier is the unchecked form used by upsert, which treats the
// query document as an insertion template rather than a strict
// before-state.
func applyModifier(template Doc, updateQuery Doc) Doc {
	out, hasModifier, err := applyModifiers(template, updateQuery)
	if err != nil || !hasModifier {
		merged := template.clone()
		for k, v := range updateQuery {
			if k == "" || k[0] != '$' {
				merged[k] = v
			}
		}
		return merged
	}
	return out
}

// applyModifiers walks updateQuery's top-level keys; any key starting with
// '$' is treated as a modifier operator and applied to doc in place. If no
// key is a modifier, hasModifier is false and the caller must decide how to
// treat updateQuery as a replacement document.
func applyModifiers(doc Doc, updateQuery Doc) (Doc, bool, error) {
	hasModifier := false
	for op := range updateQuery {
		if len(op) > 0 && op[0] == '$' {
			hasModifier = true
			break
		}
	}
	if !hasModifier {
		return doc, false, nil
	}

	for op, raw := range updateQuery {
		fields, ok := raw.(Doc)
		if !ok {
			if m, ok2 := raw.(map[string]interface{}); ok2 {
				fields = Doc(m)
			} else {
				return nil, true, &Error{Kind: KindInvalidDocument, Message: "modifier operand must be a document", Field: op}
			}
		}
		applyFn, known := modifierOps[op]
		if !known {
			return nil, true, &Error{Kind: KindInvalidDocument, Message: "unknown modifier", Field: op}
		}
		for path, v := range fields {
			if err := applyFn(doc, path, v); err != nil {
				return nil, true, err
			}
		}
	}
	return doc, true, nil
}

type modifierFunc func(doc Doc, path string, value interface{}) error

var modifierOps = map[string]modifierFunc{
	"$set": func(doc Doc, path string, value interface{}) error {
		setPath(doc, path, value)
		return nil
	},
	"$unset": func(doc Doc, path string, _ interface{}) error {
		deletePath(doc, path)
		return nil
	},
	"$inc": func(doc Doc, path string, value interface{}) error {
		delta, ok := toFloat(value)
		if !ok {
			return &Error{Kind: KindInvalidDocument, Message: "$inc operand must be numeric", Field: path}
		}
		cur, present := getPath(doc, path)
		base := 0.0
		if present {
			b, ok := toFloat(cur)
			if !ok {
				return &Error{Kind: KindInvalidDocument, Message: "$inc target is not numeric", Field: path}
			}
			base = b
		}
		setPath(doc, path, base+delta)
		return nil
	},
	"$push": func(doc Doc, path string, value interface{}) error {
		cur, present := getPath(doc, path)
		var arr []interface{}
		if present {
			a, ok := cur.([]interface{})
			if !ok {
				return &Error{Kind: KindInvalidDocument, Message: "$push target is not an array", Field: path}
			}
			arr = a
		}
		arr = append(arr, value)
		setPath(doc, path, arr)
		return nil
	},
	"$pull": func(doc Doc, path string, value interface{}) error {
		cur, present := getPath(doc, path)
		if !present {
			return nil
		}
		arr, ok := cur.([]interface{})
		if !ok {
			return &Error{Kind: KindInvalidDocument, Message: "$pull target is not an array", Field: path}
		}
		out := make([]interface{}, 0, len(arr))
		for _, item := range arr {
			if !equalValues(item, value) {
				out = append(out, item)
			}
		}
		setPath(doc, path, out)
		return nil
	},
}
