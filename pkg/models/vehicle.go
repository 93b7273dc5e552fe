package models

// VehicleClass is one of the detector's closed set of vehicle categories.
// The values must match the model's class names exactly.
type VehicleClass string

const (
	ClassAmbulance  VehicleClass = "ambulance"
	ClassBoxTruck   VehicleClass = "boxtruck"
	ClassBus        VehicleClass = "bus"
	ClassETan       VehicleClass = "e_tan"
	ClassHatchback  VehicleClass = "hatchback"
	ClassJeep       VehicleClass = "jeep"
	ClassMiniTruck  VehicleClass = "mini_truck"
	ClassMotorcycle VehicleClass = "motorcycle"
	ClassPickup     VehicleClass = "pickup"
	ClassSaleng     VehicleClass = "saleng"
	ClassSedan      VehicleClass = "sedan"
	ClassSongthaew  VehicleClass = "songthaew"
	ClassSupercar   VehicleClass = "supercar"
	ClassSUV        VehicleClass = "suv"
	ClassTaxi       VehicleClass = "taxi"
	ClassTruck      VehicleClass = "truck"
	ClassTukTuk     VehicleClass = "tuktuk"
	ClassVan        VehicleClass = "van"
)

// VehicleClasses lists every known class in display order.
var VehicleClasses = []VehicleClass{
	ClassAmbulance, ClassBoxTruck, ClassBus, ClassETan,
	ClassHatchback, ClassJeep, ClassMiniTruck, ClassMotorcycle,
	ClassPickup, ClassSaleng, ClassSedan, ClassSongthaew,
	ClassSupercar, ClassSUV, ClassTaxi, ClassTruck,
	ClassTukTuk, ClassVan,
}

// Valid reports whether s is a known vehicle class.
func (v VehicleClass) Valid() bool {
	for _, c := range VehicleClasses {
		if v == c {
			return true
		}
	}
	return false
}
