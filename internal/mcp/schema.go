package mcp

// Helper constructors for schema properties

func StringProp(desc string) Property {
	return Property{Type: "string", Description: desc}
}

func StringPropDefault(desc, def string) Property {
	return Property{Type: "string", Description: desc, Default: def}
}

func StringEnumProp(desc string, values ...string) Property {
	return Property{Type: "string", Description: desc, Enum: values}
}

func StringArrayProp(desc string) Property {
	return Property{Type: "array", Description: desc, Items: &ItemType{Type: "string"}}
}

func BoolProp(desc string, def bool) Property {
	return Property{Type: "boolean", Description: desc, Default: def}
}

func IntegerProp(desc string) Property {
	return Property{Type: "integer", Description: desc}
}

func NumberProp(desc string) Property {
	return Property{Type: "number", Description: desc}
}

// Object builds an object schema.
func Object(props map[string]Property, required ...string) InputSchema {
	if props == nil {
		props = map[string]Property{}
	}
	return InputSchema{Type: "object", Properties: props, Required: required}
}
