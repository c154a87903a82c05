// Package providers implements the OAuth2 authorization-code CRM provider
// used by the connector core. Vendor specific endpoints and payload shapes
// live in subpackages such as providers/hubspot.
package providers
