// ABOUTME: Discovery package for locating soundboards on the network
// ABOUTME: Wraps hashicorp/mdns advertisement and browsing
// Package discovery advertises a soundboard control server over mDNS and
// browses for other soundboards.
//
// Example:
//
//	mgr := discovery.NewManager(discovery.Config{ServiceName: "Desk", Port: 8928})
//	if err := mgr.Advertise(); err != nil {
//		return err
//	}
//	defer mgr.Stop()
package discovery
