// Package physics manages the lifecycle of physics objects on top of an
// engine.World: rigid bodies, areas, shapes and joints.
//
// Objects live in generational stores and are named by typed tags. Creation
// returns a counted Handle; releasing the last clone queues the object, and
// WorldServer.Collect destroys it at the single collection point of a step.
// Cross references (body to shape, joint to body) are kept consistent in
// both directions: a shape cannot be dropped while bodies use it, and a body
// is unbound from its joints before it is removed.
package physics
