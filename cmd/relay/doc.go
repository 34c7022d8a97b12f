// Package main runs the development bridge used by dappconnect during
// development and tests. It relays encrypted socket messages between a dapp
// and a wallet over websockets and queues publications for topics nobody is
// subscribed to yet.
//
// Websocket API
//
//	GET /
//	    Upgrade to a websocket. Every frame is a JSON socket message
//	    {"topic", "type", "payload", "silent"}.
//
//	type "sub"
//	    Subscribe the connection to topic. Messages queued for the topic are
//	    delivered immediately and removed from the queue.
//
//	type "pub"
//	    Deliver payload to every subscriber of topic, or queue it for the
//	    configured TTL when there are none.
//
// Behaviour
//
//   - The pending queue lives in memory unless --redis (or BRIDGE_REDIS_ADDR)
//     is set, in which case it survives restarts.
//   - GET /healthz answers 200 for load balancers.
//   - The default listen address is :5001.
//
// The bridge never sees plaintext or keys; payloads are encrypted end to end
// between dapp and wallet.
package main
