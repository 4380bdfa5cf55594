// Package infra contains technical adapters such as the MQTT care-team
// notifier, metrics exporters and the zerolog logger. These packages should
// depend only on the interfaces defined in the core packages.
package infra
