/*
Package registry records handler, processor, middleware and event handler bindings
and resolves them by exact type.

Bindings are added with the generic Bind* functions and looked up by the dispatcher
and the event bus in the servicebus package. Handlers are either singletons shared by
every dispatch or transient instances built per resolution Scope and released when the
scope closes.
*/
package registry
