package instance

import (
	"github.com/angelmondragon/packfinderz-inventory/pkg/env"
)

// idKeys are checked in order. DYNO covers Heroku dynos and HOSTNAME covers
// container schedulers that name pods after the replica.
var idKeys = []string{"PACKFINDERZ_INSTANCE_ID", "DYNO", "WORKER_ID", "HOSTNAME"}

// ID identifies this process in startup and job logs.
// It falls back to "<service>-0" when nothing in the environment names it.
func ID(service string) string {
	if id, ok := env.First(idKeys...); ok {
		return id
	}
	if service == "" {
		service = "inventory"
	}
	return service + "-0"
}
