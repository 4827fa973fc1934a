package order

// Audience identifies which actor-facing vocabulary to resolve a status into.
type Audience string

const (
	AudienceShopkeeper Audience = "shopkeeper"
	AudienceWarehouse  Audience = "warehouse"
	AudienceCourier    Audience = "courier"
)

// LabelTable maps canonical statuses to the wording one audience sees.
// The tables are configuration: swapping a label never touches the machine.
type LabelTable map[Status]string

// DefaultLabels carries the storefront vocabularies. Warehouse staff,
// couriers, and shopkeepers each describe the same state differently; the
// canonical Status is what gets persisted and compared.
var DefaultLabels = map[Audience]LabelTable{
	AudienceShopkeeper: {
		StatusCreated:     "pedido creado",
		StatusConfirmed:   "pedido confirmado",
		StatusAssigned:    "repartidor asignado",
		StatusAtWarehouse: "en preparación",
		StatusPickedUp:    "recogido",
		StatusInTransit:   "en camino",
		StatusDelivered:   "entregado",
		StatusCancelled:   "cancelado",
	},
	AudienceWarehouse: {
		StatusCreated:     "nuevo",
		StatusConfirmed:   "por despachar",
		StatusAssigned:    "esperando repartidor",
		StatusAtWarehouse: "alistando",
		StatusPickedUp:    "despachado",
		StatusInTransit:   "despachado",
		StatusDelivered:   "entregado",
		StatusCancelled:   "cancelado",
	},
	AudienceCourier: {
		StatusCreated:     "pendiente",
		StatusConfirmed:   "disponible",
		StatusAssigned:    "aceptado",
		StatusAtWarehouse: "en bodega",
		StatusPickedUp:    "recogido",
		StatusInTransit:   "en ruta",
		StatusDelivered:   "entregado",
		StatusCancelled:   "cancelado",
	},
}

// Label resolves the wording for a status and audience, falling back to the
// canonical value when no table entry exists.
func Label(audience Audience, s Status) string {
	if table, ok := DefaultLabels[audience]; ok {
		if label, ok := table[s]; ok {
			return label
		}
	}
	return string(s)
}
