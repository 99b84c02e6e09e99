package analyzer

import "regexp"

// replicaPattern matches the generated suffix of a deployment replica:
// <service>-<pod-template-hash>-<random>
var replicaPattern = regexp.MustCompile(`^([a-zA-Z-]+)-[a-f0-9]{8,10}-[a-z0-9]{5}`)

// ResolveService maps an instance name to its logical service name.
// Names that don't look like a deployment replica are returned unchanged.
func ResolveService(instance string) string {
	if m := replicaPattern.FindStringSubmatch(instance); m != nil {
		return m[1]
	}
	return instance
}
