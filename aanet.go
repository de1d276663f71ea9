package aanet

// aanet.go holds package-wide identity generation, object lookup maps,
// and small helpers shared by the rest of the simulator

import (
	"errors"
	"fmt"
)

// utility counter for generating unique integer ids on demand
var numIds int = 0

// nxtID creates an id for objects created within the aanet module that is unique among those objects
func nxtID() int {
	numIds += 1
	return numIds
}

// global variables for finding drones given an id, or a name.
// Populated at model build time, read-only thereafter
var DroneByID map[int]*droneNode
var DroneByName map[string]*droneNode

// initLookupMaps resets the lookup dictionaries; called once when a
// simulator is assembled so that repeated builds (e.g. in tests) start clean
func initLookupMaps() {
	DroneByID = make(map[int]*droneNode)
	DroneByName = make(map[string]*droneNode)
	numIds = 0
}

// addDroneLookup puts a new entry in the DroneByID and DroneByName
// maps, panicking if the entry already exists
func addDroneLookup(id int, name string, drone *droneNode) {
	_, present := DroneByID[id]
	if present {
		panic(fmt.Sprintf("index %d over-used in DroneByID", id))
	}
	_, present = DroneByName[name]
	if present {
		panic(fmt.Sprintf("name %s over-used in DroneByName", name))
	}
	DroneByID[id] = drone
	DroneByName[name] = drone
}

// ReportErrs combines a list of errors into a single error, dropping nils
func ReportErrs(errs []error) error {
	errMsgs := []string{}
	for _, err := range errs {
		if err != nil {
			errMsgs = append(errMsgs, err.Error())
		}
	}
	if len(errMsgs) == 0 {
		return nil
	}

	rtn := errMsgs[0]
	for _, msg := range errMsgs[1:] {
		rtn += "\n" + msg
	}
	return errors.New(rtn)
}
