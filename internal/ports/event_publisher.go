package ports

import "lastmile-route-service/internal/domain"

// Port: boundary for broadcasting reroute events to route subscribers.
// Publish must not block on slow consumers.
type RoutePublisher interface {
	Publish(routeID int64, ev domain.RerouteEvent)
}
