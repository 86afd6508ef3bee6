package rider

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// VehicleType describes what the rider delivers with. It does not affect
// dispatch policy; ETA estimation uses a single average speed.
type VehicleType int

const (
	// VehicleUnknown represents an invalid or undefined vehicle type.
	VehicleUnknown VehicleType = iota

	// Bicycle is a pedal bicycle.
	Bicycle

	// Motorbike is a motorcycle or scooter.
	Motorbike

	// Car is any four-wheeled vehicle.
	Car
)

func getVehicleTypeStrings() map[VehicleType]string {
	return map[VehicleType]string{
		VehicleUnknown: "Unknown",
		Bicycle:        "Bicycle",
		Motorbike:      "Motorbike",
		Car:            "Car",
	}
}

// Validate checks if the VehicleType value is one of the defined types.
func (v VehicleType) Validate() error {
	if v < Bicycle || v > Car {
		return errs.NewValueIsInvalidErrorWithCause("vehicle type is invalid",
			fmt.Errorf("%d is not a valid vehicle type", v))
	}
	return nil
}

// String returns the human-readable name of the vehicle type.
func (v VehicleType) String() string {
	if str, ok := getVehicleTypeStrings()[v]; ok {
		return str
	}
	return "Unknown"
}
