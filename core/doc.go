// Package core contains the connector domain contracts, entities, and
// orchestration logic: authorization, credential refresh, and the company sync
// pipeline. Provider, storage, and transport adapters depend on this package;
// core must not depend on them.
package core
