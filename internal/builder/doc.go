/*
Package builder turns the format-agnostic suite model (defined in the
'config' package) into flow trees ready for generation and deployment.

Construction is a multi-phase process:

 1. Hosts and externs: every host of the model becomes a host.Host and
    every extern address a detached placeholder.

 2. Node creation: each suite is built depth first inside flow.Builder
    scopes. Variables, scripts and attributes that reference nothing are
    attached here. A node selecting a host with a limit creates the limit
    before its children, so tasks below it join it.

 3. Linking: once every tree exists, triggers, completes, follows and
    inlimits are resolved against it. References are looked up relative to
    the owner's parent, then to the suite, then among the externs.

Errors never stop a phase; they are collected and returned joined.
*/
package builder
