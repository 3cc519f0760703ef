package urls

// PortalAddress is the gateway address of the setup access point.
const PortalAddress = "192.168.4.1"

// Root serves the credential form in provisioning mode.
const Root = "/"

// Scan lists nearby networks as JSON.
const Scan = "/scan"

// Save accepts the ssid, password and reset_password form fields.
const Save = "/save"

// Reset erases stored credentials. Registered on both surfaces.
const Reset = "/reset"

// Status reports the link on the connected surface.
const Status = "/status"

// Metrics is the Prometheus scrape endpoint on the connected surface.
const Metrics = "/metrics"

// Events is the lifecycle websocket on the connected surface.
const Events = "/events"
