package introspection

import (
	"strings"

	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/wayland-systems/graphql-inspector/errors"
)

// Query is the standard introspection query sent to live endpoints.
const Query = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types { ...FullType }
    directives {
      name
      description
      locations
      args { ...InputValue }
    }
  }
}

fragment FullType on __Type {
  kind
  name
  description
  fields(includeDeprecated: true) {
    name
    description
    args { ...InputValue }
    type { ...TypeRef }
    isDeprecated
    deprecationReason
  }
  inputFields { ...InputValue }
  interfaces { ...TypeRef }
  enumValues(includeDeprecated: true) {
    name
    description
    isDeprecated
    deprecationReason
  }
  possibleTypes { ...TypeRef }
}

fragment InputValue on __InputValue {
  name
  description
  type { ...TypeRef }
  defaultValue
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType {
        kind
        name
        ofType {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType {
                kind
                name
              }
            }
          }
        }
      }
    }
  }
}`

// SDL renders the decoded introspection result as schema definition language.
func (r *Result) SDL() string {
	var sb strings.Builder
	formatter.NewFormatter(&sb).FormatSchemaDocument(r.SchemaDocument())
	return sb.String()
}

// SDLFromJSON decodes raw introspection JSON and renders it as SDL in one
// step.
func SDLFromJSON(data []byte) (string, error) {
	result, err := Decode(data)
	if err != nil {
		return "", errors.Wrap(err, "introspection", "SDLFromJSON", "decode result")
	}
	return result.SDL(), nil
}
