package discovery

// PrimaryService picks the endpoint to connect to from a detection result:
// the first with a usable cluster IP, then the first LoadBalancer service,
// then the first with a URL, else the first one. It returns nil for an empty
// slice.
func PrimaryService(services []DetectedService) *DetectedService {
	i := primaryIndex(services)
	if i < 0 {
		return nil
	}
	return &services[i]
}

func primaryIndex(services []DetectedService) int {
	if len(services) == 0 {
		return -1
	}
	for i := range services {
		if usableIP(services[i].ClusterIP) {
			return i
		}
	}
	for i := range services {
		if services[i].Type == "LoadBalancer" {
			return i
		}
	}
	for i := range services {
		if services[i].URL != "" {
			return i
		}
	}
	return 0
}

// markPrimary flags the PrimaryService of instances.
func markPrimary(instances []ServiceInstance) {
	services := make([]DetectedService, len(instances))
	for i := range instances {
		services[i] = instances[i].DetectedService
	}
	if i := primaryIndex(services); i >= 0 {
		instances[i].Primary = true
	}
}
